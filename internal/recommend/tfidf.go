package recommend

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// MaxFeatures caps the vocabulary at the most frequent terms.
const MaxFeatures = 5000

var tokenPattern = regexp.MustCompile(`\w\w+`)

// tokenize lower-cases text, splits it into words of two or more word
// characters, drops stop words and returns unigrams followed by bigrams.
func tokenize(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	kept := words[:0]
	for _, w := range words {
		if _, stop := englishStopWords[w]; !stop {
			kept = append(kept, w)
		}
	}
	terms := make([]string, 0, 2*len(kept))
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// sparseVec is an L2-normalised document row: vocabulary indexes in
// ascending order with their weights.  Keeping the order fixed makes dot
// products reproducible bit for bit.
type sparseVec []term

type term struct {
	idx int
	w   float64
}

func (a sparseVec) dot(b sparseVec) float64 {
	var s float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].idx == b[j].idx:
			s += a[i].w * b[j].w
			i++
			j++
		case a[i].idx < b[j].idx:
			i++
		default:
			j++
		}
	}
	return s
}

// vectorize builds TF-IDF rows for docs.  Term frequency is the raw count
// and idf is ln((1+n)/(1+df))+1.  Rows with no surviving terms are empty.
func vectorize(docs []string) []sparseVec {
	counts := make([]map[string]int, len(docs))
	total := map[string]int{}
	df := map[string]int{}
	for i, d := range docs {
		c := map[string]int{}
		for _, t := range tokenize(d) {
			c[t]++
		}
		for t, n := range c {
			total[t] += n
			df[t]++
		}
		counts[i] = c
	}

	vocab := make([]string, 0, len(total))
	for t := range total {
		vocab = append(vocab, t)
	}
	sort.Slice(vocab, func(i, j int) bool {
		if total[vocab[i]] != total[vocab[j]] {
			return total[vocab[i]] > total[vocab[j]]
		}
		return vocab[i] < vocab[j]
	})
	if len(vocab) > MaxFeatures {
		vocab = vocab[:MaxFeatures]
	}
	sort.Strings(vocab)
	index := make(map[string]int, len(vocab))
	for i, t := range vocab {
		index[t] = i
	}

	n := float64(len(docs))
	rows := make([]sparseVec, len(docs))
	for i, c := range counts {
		row := sparseVec{}
		for t, k := range c {
			j, ok := index[t]
			if !ok {
				continue
			}
			w := float64(k) * (math.Log((1+n)/(1+float64(df[t]))) + 1)
			row = append(row, term{idx: j, w: w})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].idx < row[b].idx })
		var norm float64
		for _, e := range row {
			norm += e.w * e.w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range row {
				row[k].w /= norm
			}
		}
		rows[i] = row
	}
	return rows
}
