package scrape

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for HTML parsing.
var (
	titleTag           = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag          = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag           = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag        = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	formTag            = regexp.MustCompile(`(?is)<form[^>]*>.*?</form>`)
	navTag             = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	asideTag           = regexp.MustCompile(`(?is)<aside[^>]*>.*?</aside>`)
	svgTag             = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	headTag            = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments       = regexp.MustCompile(`(?s)<!--.*?-->`)
	imgTag             = regexp.MustCompile(`(?is)<img[^>]*>`)
	imgSrcAttr         = regexp.MustCompile(`(?is)src\s*=\s*["']([^"']*)["']`)
	imgAltAttr         = regexp.MustCompile(`(?is)alt\s*=\s*["']([^"']*)["']`)
	openBlockElements  = regexp.MustCompile(`(?i)<(p|div|section|article|header|footer|h[1-6]|li|tr|blockquote|pre|table)[^>]*>`)
	closeBlockElements = regexp.MustCompile(`(?i)</(p|div|section|article|header|footer|h[1-6]|li|tr|blockquote|pre|table)>`)
	brTags             = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags             = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags            = regexp.MustCompile(`<[^>]+>`)
	multiSpaces        = regexp.MustCompile(`[ \t]+`)
	copyrightMarks     = regexp.MustCompile(`©\s*\d{0,4}`)
)

// ParseHTML extracts the title, readable text, and image inventory from raw
// HTML. Chrome (script/style/nav/form/aside), comments, and copyright marks
// are removed; <img> tags are replaced with short descriptions so the text
// keeps a trace of figures.
func ParseHTML(url, raw string) *Page {
	page := &Page{URL: url}

	if m := titleTag.FindStringSubmatch(raw); len(m) > 1 {
		page.Title = strings.TrimSpace(html.UnescapeString(m[1]))
	}

	page.Images = extractImages(raw)
	page.Text = extractText(raw)
	return page
}

// extractImages collects src/alt pairs before any tags are stripped.
func extractImages(raw string) []Image {
	var images []Image
	for _, tag := range imgTag.FindAllString(raw, -1) {
		var img Image
		if m := imgSrcAttr.FindStringSubmatch(tag); len(m) > 1 {
			img.Src = strings.TrimSpace(m[1])
		}
		if m := imgAltAttr.FindStringSubmatch(tag); len(m) > 1 {
			img.Alt = strings.TrimSpace(m[1])
		}
		if img.Src != "" || img.Alt != "" {
			images = append(images, img)
		}
	}
	return images
}

// describeImage renders an <img> tag as inline descriptive text.
func describeImage(tag string) string {
	if m := imgAltAttr.FindStringSubmatch(tag); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		return "An image of " + strings.TrimSpace(m[1]) + ". "
	}
	if m := imgSrcAttr.FindStringSubmatch(tag); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		return "An image from " + strings.TrimSpace(m[1]) + ". "
	}
	return "An image. "
}

// extractText reduces raw HTML to cleaned visible text with one line per
// block element.
func extractText(raw string) string {
	content := headTag.ReplaceAllString(raw, "")
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = formTag.ReplaceAllString(content, "")
	content = navTag.ReplaceAllString(content, "")
	content = asideTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = imgTag.ReplaceAllStringFunc(content, describeImage)

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = closeBlockElements.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = copyrightMarks.ReplaceAllString(content, "")
	content = multiSpaces.ReplaceAllString(content, " ")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
