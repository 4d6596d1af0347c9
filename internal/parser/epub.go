package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/dgallion1/mindgest/internal/document"
)

const maxEPUBEntryBytes = 32 << 20

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// EPUBExtractor reads the spine of an EPUB and runs every XHTML resource
// through Markdown conversion.
type EPUBExtractor struct {
	markdown *MarkdownExtractor
}

func (e *EPUBExtractor) Extract(ctx context.Context, data []byte, _ string, progress document.ProgressFunc) (*document.Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &document.ExtractionError{Reason: "open epub", Err: err}
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	method := "spine"
	resources, err := spineOrder(files)
	if err != nil || len(resources) == 0 {
		method = "archive-order"
		resources = archiveOrder(zr.File)
	}
	if len(resources) == 0 {
		return nil, &document.ExtractionError{Reason: "epub has no html content"}
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	var parts []string
	var sections []document.Section
	for i, name := range resources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Emit(document.ProgressEvent{
			Stage:      document.StageParsing,
			Page:       i + 1,
			TotalPages: len(resources),
			Percent:    min(5+(i+1)*90/len(resources), 95),
		})

		raw, err := readZipFile(files[name])
		if err != nil {
			continue
		}
		md, err := conv.ConvertString(string(raw))
		if err != nil {
			continue
		}
		ex, err := e.markdown.Extract(ctx, []byte(md), name, nil)
		if err != nil || strings.TrimSpace(ex.Text) == "" {
			continue
		}
		parts = append(parts, ex.Text)
		sections = append(sections, ex.Sections...)
	}

	return &document.Extraction{
		Text:     strings.Join(parts, "\n\n"),
		Pages:    len(resources),
		Sections: sections,
		Method:   method,
	}, nil
}

// spineOrder resolves container.xml and the OPF spine into archive paths.
func spineOrder(files map[string]*zip.File) ([]string, error) {
	raw, err := readZipFile(files["META-INF/container.xml"])
	if err != nil {
		return nil, fmt.Errorf("container.xml: %w", err)
	}
	var container epubContainer
	if err := xml.Unmarshal(raw, &container); err != nil {
		return nil, fmt.Errorf("decode container.xml: %w", err)
	}
	if len(container.Rootfiles) == 0 {
		return nil, fmt.Errorf("container.xml: no rootfile")
	}

	opfPath := container.Rootfiles[0].FullPath
	raw, err = readZipFile(files[opfPath])
	if err != nil {
		return nil, fmt.Errorf("opf %s: %w", opfPath, err)
	}
	var pkg epubPackage
	if err := xml.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("decode opf: %w", err)
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		if strings.Contains(item.MediaType, "html") {
			hrefs[item.ID] = item.Href
		}
	}

	base := path.Dir(opfPath)
	var out []string
	for _, ref := range pkg.Spine {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		if i := strings.IndexByte(href, '#'); i >= 0 {
			href = href[:i]
		}
		if unescaped, err := url.PathUnescape(href); err == nil {
			href = unescaped
		}
		name := path.Join(base, href)
		if _, ok := files[name]; ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// archiveOrder lists the HTML resources in the order the archive stores them.
func archiveOrder(files []*zip.File) []string {
	var out []string
	for _, f := range files {
		ext := strings.ToLower(path.Ext(f.Name))
		if ext == ".html" || ext == ".xhtml" || ext == ".htm" {
			out = append(out, f.Name)
		}
	}
	return out
}

func readZipFile(f *zip.File) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("missing entry")
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEPUBEntryBytes))
}
