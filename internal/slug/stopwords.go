package slug

import (
	"regexp"
	"strings"
)

// Stopwords removes administrative vocabulary from division names.
// Entries containing a space are phrases matched anywhere in the name, the
// others are whole words. Matching is case-insensitive and applied in order.
type Stopwords struct {
	steps []stopStep
}

type stopStep struct {
	phrase *regexp.Regexp
	word   string
}

// NewStopwords compiles a stop list.
func NewStopwords(words []string) *Stopwords {
	s := &Stopwords{steps: make([]stopStep, 0, len(words))}
	for _, w := range words {
		if strings.Contains(w, " ") {
			s.steps = append(s.steps, stopStep{phrase: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w))})
			continue
		}
		s.steps = append(s.steps, stopStep{word: strings.ToLower(w)})
	}
	return s
}

// Trim removes every stop phrase and word from name.
func (s *Stopwords) Trim(name string) string {
	for _, step := range s.steps {
		if step.phrase != nil {
			name = step.phrase.ReplaceAllString(name, "")
			continue
		}
		fields := strings.Fields(name)
		kept := fields[:0]
		for _, f := range fields {
			if strings.ToLower(f) != step.word {
				kept = append(kept, f)
			}
		}
		name = strings.Join(kept, " ")
	}
	return strings.TrimSpace(name)
}

// Admin2Stopwords is the stop list applied to Admin2 names.
var Admin2Stopwords = NewStopwords([]string{
	// phrases
	"administrative okrug", "administrativnyy okrug", "gorodskoy okrug", "urban okrug",
	"caza de", "caza du", "cercle de",
	"city council", "commune of", "daïra de", "daïra d’", "departamento de", "departamento del",
	"distrito de", "gradska četvrt", "komissarov rayon", "komuna e",
	"municipio de", "municipiul provincia de", "partido de", "politischer bezirk",
	"province of", "rrethi i", "urban district", "ward of",
	// joining words
	"and", "with", "of",
	// UK
	"council", "city", "borough", "district", "county", "metropolitan", "royal", "vale",
	// everywhere else
	"administrative", "amphoe", "arrondissement", "autonomous", "aūdany",
	"bashkia", "cantón", "cercle", "circunscrição", "comuna",
	"constituency", "department", "division", "gemeente",
	"gorod", "grad", "huyện", "i̇lçesi", "járás", "kabupaten",
	"kommun", "kota", "liwā’", "locality", "markaz",
	"miskrada", "mis’krada", "muang", "mudīrīyat",
	"municipality", "municipio", "munitsip’alit’et’i",
	"nohiyai", "nomós", "obshtina", "okres", "općina", "opština", "oraş",
	"pagasts", "parish", "powiat",
	"prefecture", "province", "provincia", "qalasy", "qaḑā’",
	"raion", "raioni", "rajonas", "rayon", "region",
	"shahrestān-e", "shahri", "sub-prefecture", "zone",
})
