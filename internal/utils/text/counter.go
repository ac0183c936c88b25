// Package text provides text measurement helpers shared by the
// simulated providers. Call scripts carry contact names in any script,
// so sizing must count Unicode characters rather than bytes.
package text

// CountRunes counts the Unicode characters (runes) in the given text.
// Multi-byte characters such as Japanese, accented names, and emoji
// count as one each, so token estimates and spoken-length estimates do
// not triple for non-ASCII scripts.
//
// Examples:
//
//	CountRunes("hello")     // returns 5
//	CountRunes("こんにちは")  // returns 5
//	CountRunes("")          // returns 0
func CountRunes(text string) int {
	return len([]rune(text))
}
