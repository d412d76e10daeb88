package mock

import "github.com/fwojciec/webgrab"

var _ webgrab.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of webgrab.Extractor.
type Extractor struct {
	ExtractLinksFn     func(baseURL, html string) ([]string, error)
	ExtractResourcesFn func(baseURL, html string) (map[webgrab.ResourceType][]string, error)
}

func (e *Extractor) ExtractLinks(baseURL, html string) ([]string, error) {
	return e.ExtractLinksFn(baseURL, html)
}

func (e *Extractor) ExtractResources(baseURL, html string) (map[webgrab.ResourceType][]string, error) {
	return e.ExtractResourcesFn(baseURL, html)
}
