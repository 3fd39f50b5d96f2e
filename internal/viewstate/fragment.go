package viewstate

import (
	"net/url"
	"strings"
)

// URLFragment adapts a raw `#key=value&...` fragment into the FragmentChannel
// port. The fragment body is encoded as standard query-string pairs. Read
// returns nothing once Clear has consumed the input, mirroring a browser
// stripping the fragment from the visible URL after first load.
type URLFragment struct {
	base     *url.URL
	pairs    map[string]string
	consumed bool
}

// NewURLFragment parses the raw fragment against the absolute base URL of
// the current view (origin + path). Malformed input yields an empty, valid
// channel rather than an error.
func NewURLFragment(base, rawFragment string) *URLFragment {
	parsed, err := url.Parse(base)
	if err != nil {
		parsed = &url.URL{}
	}
	parsed.Fragment = ""
	parsed.RawQuery = ""

	pairs := make(map[string]string)
	raw := strings.TrimPrefix(rawFragment, "#")
	if values, err := url.ParseQuery(raw); err == nil {
		for key := range values {
			pairs[key] = values.Get(key)
		}
	}
	return &URLFragment{base: parsed, pairs: pairs}
}

// Read returns the fragment's key/value pairs, or nothing once consumed.
func (f *URLFragment) Read() map[string]string {
	if f.consumed {
		return nil
	}
	return f.pairs
}

// Clear consumes the fragment; later reads fall back to durable storage.
func (f *URLFragment) Clear() {
	f.consumed = true
	f.pairs = nil
}

// BuildURL returns the absolute view URL with the pairs encoded after `#`.
// url.Values.Encode emits keys in sorted order, so identical state yields
// identical links.
func (f *URLFragment) BuildURL(pairs map[string]string) string {
	base := f.base.String()
	if len(pairs) == 0 {
		return base
	}

	values := url.Values{}
	for key, value := range pairs {
		values.Set(key, value)
	}
	return base + "#" + values.Encode()
}
