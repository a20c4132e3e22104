package diagram

import (
	"regexp"
	"strings"
)

// Keyword vocabularies driving diagram-type detection. Matches are token
// based, not substring based, so "street" never scores as "tree".
var TreeWords = []string{
	"tree", "trees", "binary", "bst", "node", "nodes", "root", "leaf", "leaves",
	"child", "children", "parent", "subtree", "traversal", "preorder",
	"postorder", "inorder", "bfs", "dfs", "hierarchy", "heap",
}

var SystemWords = []string{
	"api", "service", "services", "gateway", "database", "db", "cache", "redis",
	"queue", "client", "server", "microservice", "microservices", "load",
	"balancer", "postgres", "kafka", "backend", "frontend", "proxy", "cdn",
}

var treeWordSet = toSet(TreeWords)
var systemWordSet = toSet(SystemWords)

func toSet(words []string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeLabel lowercases and squashes non-alphanumerics to single spaces.
func NormalizeLabel(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens splits free text into normalized lowercase tokens.
func Tokens(s string) []string {
	norm := NormalizeLabel(s)
	if norm == "" {
		return nil
	}
	return strings.Fields(norm)
}

// JaccardSimilarity over normalized token sets; empty-vs-empty is 1.
func JaccardSimilarity(a, b string) float64 {
	as := toSet(Tokens(a))
	bs := toSet(Tokens(b))
	if len(as) == 0 && len(bs) == 0 {
		return 1
	}
	inter := 0
	for t := range as {
		if bs[t] {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func countKeywords(tokens []string, set map[string]bool) int {
	n := 0
	for _, t := range tokens {
		if set[t] {
			n++
		}
	}
	return n
}

// HasKeywordHint reports whether any token is a structural keyword. Used by
// the transcript filters upstream of the builders.
func HasKeywordHint(tokens []string) bool {
	for _, t := range tokens {
		if treeWordSet[t] || systemWordSet[t] {
			return true
		}
		switch t {
		case "flowchart", "diagram", "context", "correction":
			return true
		}
	}
	return false
}
