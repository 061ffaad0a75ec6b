package smartsheet

import "regexp"

// urlPatterns mirrors the original's broader pattern set (SPEC_FULL §9):
// the full web sheet URL, the short share-link form, and the REST API
// resource URL, each with a capture group yielding the sheet ID.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^https?://app\.smartsheet\.com/sheets/([A-Za-z0-9_-]+)(?:[/?].*)?$`),
	regexp.MustCompile(`(?i)^https?://app\.smartsheet\.com/b/home\?lx=([A-Za-z0-9_-]+)$`),
	regexp.MustCompile(`(?i)^https?://api\.smartsheet\.com/2\.0/sheets/(\d+)(?:[/?].*)?$`),
}

// RegexValidator implements the URL-validation/ID-extraction slice of the
// Client contract that the Router performs directly (spec §4.9.3), backed
// by regexp rather than a live API call.
type RegexValidator struct{}

// NewRegexValidator constructs a RegexValidator.
func NewRegexValidator() RegexValidator { return RegexValidator{} }

// ValidateURL reports whether url matches one of the known Smartsheet URL
// shapes.
func (RegexValidator) ValidateURL(url string) bool {
	for _, pat := range urlPatterns {
		if pat.MatchString(url) {
			return true
		}
	}
	return false
}

// ExtractSheetID returns the sheet ID embedded in url, if any pattern
// matches.
func (RegexValidator) ExtractSheetID(url string) (string, bool) {
	for _, pat := range urlPatterns {
		if m := pat.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}
