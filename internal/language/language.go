// Package language normalizes transcription language codes. Configuration and
// transcript rows store ISO 639-1 codes; operators may type 639-2 codes or
// English names.
package language

import "strings"

type tongue struct {
	iso1    string
	name    string
	aliases []string
}

var tongues = []tongue{
	{"en", "English", []string{"eng", "english"}},
	{"es", "Spanish", []string{"spa", "spanish", "castellano"}},
	{"fr", "French", []string{"fra", "fre", "french"}},
	{"de", "German", []string{"deu", "ger", "german"}},
	{"it", "Italian", []string{"ita", "italian"}},
	{"pt", "Portuguese", []string{"por", "portuguese"}},
	{"nl", "Dutch", []string{"nld", "dut", "dutch"}},
	{"pl", "Polish", []string{"pol", "polish"}},
	{"uk", "Ukrainian", []string{"ukr", "ukrainian"}},
	{"ru", "Russian", []string{"rus", "russian"}},
	{"tr", "Turkish", []string{"tur", "turkish"}},
	{"ar", "Arabic", []string{"ara", "arabic"}},
	{"hi", "Hindi", []string{"hin", "hindi"}},
	{"id", "Indonesian", []string{"ind", "indonesian"}},
	{"ja", "Japanese", []string{"jpn", "japanese"}},
	{"ko", "Korean", []string{"kor", "korean"}},
	{"zh", "Chinese", []string{"zho", "chi", "chinese", "mandarin"}},
	{"sv", "Swedish", []string{"swe", "swedish"}},
	{"da", "Danish", []string{"dan", "danish"}},
	{"no", "Norwegian", []string{"nor", "nob", "norwegian"}},
	{"fi", "Finnish", []string{"fin", "finnish"}},
}

var index = func() map[string]*tongue {
	m := make(map[string]*tongue, len(tongues)*4)
	for i := range tongues {
		t := &tongues[i]
		m[t.iso1] = t
		for _, alias := range t.aliases {
			m[alias] = t
		}
	}
	return m
}()

func clean(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	// Region subtags ("en-US", "pt_BR") reduce to the primary language.
	if cut := strings.IndexAny(code, "-_"); cut > 0 {
		code = code[:cut]
	}
	return code
}

// Normalize returns the ISO 639-1 code for code. Unknown two-letter codes pass
// through lowercased; anything else unrecognized yields "".
func Normalize(code string) string {
	code = clean(code)
	if t, ok := index[code]; ok {
		return t.iso1
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// Known reports whether code maps to a language in the table.
func Known(code string) bool {
	_, ok := index[clean(code)]
	return ok
}

// DisplayName returns the English name for code, or the uppercased code when
// it is not in the table.
func DisplayName(code string) string {
	if t, ok := index[clean(code)]; ok {
		return t.name
	}
	if trimmed := strings.TrimSpace(code); trimmed != "" {
		return strings.ToUpper(trimmed)
	}
	return "Unknown"
}
