package scrape

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Output selects how scraped pages are persisted.
type Output string

const (
	OutputText Output = "txt"
	OutputCSV  Output = "csv"
	OutputJSON Output = "json"
)

// ParseOutput validates an output name.
func ParseOutput(s string) (Output, error) {
	switch Output(s) {
	case OutputText, OutputCSV, OutputJSON:
		return Output(s), nil
	default:
		return "", fmt.Errorf("unsupported scrape output %q", s)
	}
}

var (
	unsafeFilename = regexp.MustCompile(`[\\/*?:"<>|]`)
	jsonFilename   = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// pageFilename derives a filesystem-safe name for a page: the sanitized
// title when present, otherwise host and path of the URL.
func pageFilename(p *Page, ext string) string {
	if p.Title != "" {
		return unsafeFilename.ReplaceAllString(p.Title, "_") + ext
	}
	u, err := url.Parse(p.URL)
	if err != nil || u.Host == "" {
		return "untitled" + ext
	}
	path := strings.ReplaceAll(strings.Trim(u.Path, "/"), "/", "_")
	if path == "" {
		return u.Host + ext
	}
	return u.Host + "_" + path + ext
}

// SaveText writes the page as <title-or-url>.txt: title, URL, and text
// separated by blank lines, which keeps paragraph structure for downstream
// segmentation. Returns the written path.
func SaveText(p *Page, dir string) (string, error) {
	path := filepath.Join(dir, pageFilename(p, ".txt"))
	var parts []string
	if p.Title != "" {
		parts = append(parts, p.Title)
	}
	parts = append(parts, p.URL, p.Text)
	content := strings.Join(parts, "\n\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("save txt: %w", err)
	}
	return path, nil
}

// imagesField renders the image inventory as a semicolon-delimited string
// for tabular output.
func imagesField(images []Image) string {
	parts := make([]string, 0, len(images))
	for _, img := range images {
		if img.Alt != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", img.Alt, img.Src))
		} else {
			parts = append(parts, fmt.Sprintf("(%s)", img.Src))
		}
	}
	return strings.Join(parts, "; ")
}

// AppendCSV appends pages as rows to the CSV at path, writing the header
// first when the file does not yet exist. Columns: dataset, url, title,
// text, images.
func AppendCSV(pages []*Page, path, dataset string) error {
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write([]string{"dataset", "url", "title", "text", "images"}); err != nil {
			return err
		}
	}
	for _, p := range pages {
		if err := w.Write([]string{dataset, p.URL, p.Title, p.Text, imagesField(p.Images)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type jsonImage struct {
	Src     string `json:"src"`
	AltText string `json:"alt_text"`
}

type jsonDocument struct {
	URL    string      `json:"url"`
	Title  string      `json:"title"`
	Text   string      `json:"text"`
	Images []jsonImage `json:"images"`
}

type jsonEnvelope struct {
	Dataset   string         `json:"dataset"`
	Documents []jsonDocument `json:"documents"`
}

// SaveJSON writes the page as one JSON document file shaped for bulk
// loading. Returns the written path.
func SaveJSON(p *Page, dir, dataset string) (string, error) {
	title := p.Title
	if title == "" {
		title = "untitled"
	}
	path := filepath.Join(dir, jsonFilename.ReplaceAllString(title, "_")+".json")

	images := make([]jsonImage, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, jsonImage{Src: img.Src, AltText: img.Alt})
	}
	envelope := jsonEnvelope{
		Dataset: dataset,
		Documents: []jsonDocument{{
			URL:    p.URL,
			Title:  p.Title,
			Text:   p.Text,
			Images: images,
		}},
	}
	data, err := json.MarshalIndent(envelope, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save json: %w", err)
	}
	return path, nil
}
