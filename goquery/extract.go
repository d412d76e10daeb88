// Package goquery extracts links and embedded resources from HTML using
// github.com/PuerkitoBio/goquery.
package goquery

import (
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/webgrab"
)

var _ webgrab.Extractor = (*Extractor)(nil)

// styleURL matches url(...) references in inline styles.
var styleURL = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// pdfFileHints and pdfPathHints select the PDF anchors worth downloading.
var (
	pdfFileHints = []string{"resume", "cv", "document"}
	pdfPathHints = []string{"assets/documents", "docs/", "publications/"}
)

// Extractor finds links and resources in HTML documents.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractLinks returns the absolute http(s) targets of every anchor in
// document order. Fragments are dropped and links back to baseURL itself
// are skipped.
func (e *Extractor) ExtractLinks(baseURL, html string) ([]string, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	self := webgrab.Normalize(baseURL, "")
	var links urlList
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !webgrab.IsCrawlable(href) {
			return
		}
		resolved := webgrab.Normalize(baseURL, href)
		if resolved == self || !webgrab.IsHTTPURL(resolved) {
			return
		}
		links.add(resolved)
	})
	return links.urls, nil
}

// ExtractResources returns embedded images and videos plus linked documents.
// Images come from img src and data-src attributes and from url(...) in
// inline styles. Videos come from video src and nested source elements.
// PDF anchors are only kept when their name or path looks like a document.
func (e *Extractor) ExtractResources(baseURL, html string) (map[webgrab.ResourceType][]string, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var images, videos, documents urlList
	resolve := func(ref string) string {
		if !webgrab.IsCrawlable(ref) {
			return ""
		}
		u := webgrab.Normalize(baseURL, ref)
		if !webgrab.IsHTTPURL(u) {
			return ""
		}
		return u
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range []string{"src", "data-src"} {
			if src, ok := sel.Attr(attr); ok {
				images.add(resolve(src))
			}
		}
	})

	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		for _, m := range styleURL.FindAllStringSubmatch(style, -1) {
			u := resolve(m[1])
			if webgrab.Classify(u) == webgrab.Images {
				images.add(u)
			}
		}
	})

	doc.Find("video").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			videos.add(resolve(src))
		}
		sel.Find("source[src]").Each(func(_ int, source *goquery.Selection) {
			src, _ := source.Attr("src")
			videos.add(resolve(src))
		})
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u := resolve(href)
		if u == "" || webgrab.Classify(u) != webgrab.Documents {
			return
		}
		if isPDF(u) && !looksLikeDocument(u) {
			return
		}
		documents.add(u)
	})

	resources := make(map[webgrab.ResourceType][]string)
	for t, list := range map[webgrab.ResourceType]urlList{
		webgrab.Images:    images,
		webgrab.Videos:    videos,
		webgrab.Documents: documents,
	} {
		if len(list.urls) > 0 {
			resources[t] = list.urls
		}
	}
	return resources, nil
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, webgrab.Errorf(webgrab.EINVALID, "failed to parse HTML: %v", err)
	}
	return doc, nil
}

// urlList keeps URLs unique in first-seen order.
type urlList struct {
	seen map[string]struct{}
	urls []string
}

func (l *urlList) add(u string) {
	if u == "" {
		return
	}
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	if _, ok := l.seen[u]; ok {
		return
	}
	l.seen[u] = struct{}{}
	l.urls = append(l.urls, u)
}

func lowerPath(rawURL string) string {
	p := strings.ToLower(rawURL)
	if idx := strings.Index(p, "://"); idx != -1 {
		p = p[idx+3:]
		if slash := strings.Index(p, "/"); slash != -1 {
			p = p[slash:]
		} else {
			p = "/"
		}
	}
	if idx := strings.IndexAny(p, "?#"); idx != -1 {
		p = p[:idx]
	}
	return p
}

func isPDF(rawURL string) bool {
	return strings.HasSuffix(lowerPath(rawURL), ".pdf")
}

func looksLikeDocument(rawURL string) bool {
	p := lowerPath(rawURL)
	name := path.Base(p)
	for _, hint := range pdfFileHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	for _, hint := range pdfPathHints {
		if strings.Contains(p, hint) {
			return true
		}
	}
	return false
}
