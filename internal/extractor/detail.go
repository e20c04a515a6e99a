package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/models"
)

// DetailResult carries the fields extracted from one detail page. A missing
// content selector or match yields zero values, never an error; detail
// extraction is best-effort by contract.
type DetailResult struct {
	Content     string
	ContentHTML string
	ContentHash string
	Author      string
	Images      []models.ImageRef
	PDFURL      string
	Sections    map[string]string
}

// ParseDetail extracts and sanitizes the article body of a detail page
func ParseDetail(rawHTML string, selectors *models.DetailSelectors, pageURL string) DetailResult {
	var result DetailResult
	if selectors == nil {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return result
	}

	if selectors.Content != "" {
		contentEl := doc.Find(selectors.Content).First()
		if contentEl.Length() > 0 {
			inner, err := goquery.OuterHtml(contentEl)
			if err == nil {
				result.ContentHTML = SanitizeHTML(inner, pageURL)
				result.Content = HTMLToText(result.ContentHTML)
				if result.Content != "" {
					result.ContentHash = common.ContentHash(result.Content)
				}
				result.Images = collectImages(result.ContentHTML)
				result.PDFURL = findPDFLink(contentEl, pageURL)
			}
		}
	}

	if selectors.Author != "" {
		authorEl := doc.Find(selectors.Author).First()
		if authorEl.Length() > 0 {
			result.Author = strings.TrimSpace(authorEl.Text())
		}
	}

	sections := map[string]string{}
	extractHeadingSections(doc, selectors.HeadingSections, sections)
	extractLabelPrefixSections(doc, selectors.LabelPrefixSections, sections)
	if len(sections) > 0 {
		result.Sections = sections
	}

	return result
}

// collectImages lists {src, alt} pairs from sanitized content HTML; src is
// already absolute after sanitization.
func collectImages(sanitizedHTML string) []models.ImageRef {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitizedHTML))
	if err != nil {
		return nil
	}
	var images []models.ImageRef
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return
		}
		images = append(images, models.ImageRef{
			Src: src,
			Alt: strings.TrimSpace(img.AttrOr("alt", "")),
		})
	})
	return images
}

// findPDFLink returns the first .pdf href in the content area, absolute
func findPDFLink(contentEl *goquery.Selection, pageURL string) string {
	var pdfURL string
	contentEl.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return true
		}
		if strings.HasSuffix(strings.ToLower(strings.Split(href, "?")[0]), ".pdf") {
			pdfURL = common.ResolveURL(pageURL, href)
			return false
		}
		return true
	})
	return pdfURL
}

// extractHeadingSections finds a heading whose text contains the configured
// label and captures the following sibling text until the next heading
func extractHeadingSections(doc *goquery.Document, config map[string]string, out map[string]string) {
	for field, headingText := range config {
		if headingText == "" {
			continue
		}
		doc.Find("h2, h3, h4, p, div").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := strings.TrimSpace(el.Text())
			if text != headingText && !strings.Contains(text, headingText) {
				return true
			}

			var parts []string
			for next := el.Next(); next.Length() > 0; next = next.Next() {
				tag := goquery.NodeName(next)
				if tag == "h2" || tag == "h3" || tag == "h4" {
					break
				}
				chunk := strings.TrimSpace(next.Text())
				if chunk != "" {
					parts = append(parts, chunk)
				}
			}
			if len(parts) > 0 {
				out[field] = strings.Join(parts, "\n")
				return false
			}
			return true
		})
	}
}

// extractLabelPrefixSections scans p/li elements for "Label: Value" or
// "Label：Value" lines and maps configured labels to output fields
func extractLabelPrefixSections(doc *goquery.Document, config map[string]string, out map[string]string) {
	if len(config) == 0 {
		return
	}
	doc.Find("p, li").Each(func(_ int, el *goquery.Selection) {
		text := strings.TrimSpace(el.Text())
		if text == "" {
			return
		}
		for label, field := range config {
			if _, done := out[field]; done {
				continue
			}
			for _, sep := range []string{":", "："} {
				prefix := label + sep
				if strings.HasPrefix(text, prefix) {
					value := strings.TrimSpace(strings.TrimPrefix(text, prefix))
					if value != "" {
						out[field] = value
					}
					break
				}
			}
		}
	})
}
