package dedup

// Similarity returns a ratio in [0, 1] measuring how alike two strings are.
// Both inputs are normalized, tokenized, and compared by longest common
// token subsequence: 2*LCS / (len(a)+len(b)). Word order matters, so
// reordered headlines score lower than near-identical ones.
func Similarity(a, b string) float64 {
	return TokenRatio(Tokens(NormalizeTitle(a)), Tokens(NormalizeTitle(b)))
}

// TokenRatio computes the similarity ratio over pre-tokenized inputs.
func TokenRatio(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matched := longestCommonSubsequence(a, b)
	return 2.0 * float64(matched) / float64(len(a)+len(b))
}

// longestCommonSubsequence computes LCS length with a two-row DP table.
func longestCommonSubsequence(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
