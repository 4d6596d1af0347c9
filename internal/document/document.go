package document

import (
	"fmt"
	"strings"
)

// Kind is one of the supported document formats.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindEPUB
	KindDOCX
	KindHTML
	KindMarkdown
	KindText
	KindCSV
	KindMOBI
	KindAZW3
)

var kindNames = map[Kind]string{
	KindPDF:      "pdf",
	KindEPUB:     "epub",
	KindDOCX:     "docx",
	KindHTML:     "html",
	KindMarkdown: "markdown",
	KindText:     "text",
	KindCSV:      "csv",
	KindMOBI:     "mobi",
	KindAZW3:     "azw3",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets Kind appear as its name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Descriptor describes an accepted input file.
type Descriptor struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Kind      Kind   `json:"kind"`
}

// Section is a heading found while extracting a structured format.
type Section struct {
	Level int    `json:"level"`
	Title string `json:"title"`
}

// Extraction is the plain text recovered from one document.
type Extraction struct {
	Kind     Kind      `json:"kind"`
	Text     string    `json:"text"`
	Pages    int       `json:"pages,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	// Method names the technique that produced Text (e.g. "text-layer", "ocr").
	Method string `json:"method,omitempty"`
	// Synthetic is set when Text is a generated description rather than
	// content read from the document.
	Synthetic bool `json:"synthetic"`
}

// Chunk is a bounded, ordered slice of a document's text.
type Chunk struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
}

// OutlineNode is a titled section of a document outline.
type OutlineNode struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Level    int           `json:"level"`
	Content  string        `json:"content,omitempty"`
	Children []OutlineNode `json:"children,omitempty"`
}

// MindMapNode is one label in a mind map tree.
type MindMapNode struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Children []MindMapNode `json:"children,omitempty"`
}

// Count returns the number of nodes in the tree rooted at n.
func (n MindMapNode) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Depth returns the height of the tree rooted at n (a leaf has depth 0).
func (n MindMapNode) Depth() int {
	deepest := 0
	for _, c := range n.Children {
		if d := c.Depth() + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// AnalysisResult is the record handed to callers once analysis finishes.
type AnalysisResult struct {
	Summary     string        `json:"summary"`
	KeyPoints   []string      `json:"keyPoints"`
	Outline     []OutlineNode `json:"outline"`
	MindMapData MindMapNode   `json:"mindMapData"`
}

// Task names one AI analysis task.
type Task string

const (
	TaskSummary   Task = "summary"
	TaskKeyPoints Task = "keyPoints"
	TaskOutline   Task = "outline"
	TaskMindMap   Task = "mindMap"
)

// Tasks lists every analysis task in reporting order.
var Tasks = []Task{TaskSummary, TaskKeyPoints, TaskOutline, TaskMindMap}
