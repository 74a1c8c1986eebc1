package doctree

import "strings"

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Text flattens the tree into plain text in document order. Headings and
// bodies each go on their own line.
func (t *DocTree) Text() string {
	var sb strings.Builder
	write := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s)
	}
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			write(n.Title)
			write(n.Text)
			walk(n.Children)
		}
	}
	walk(t.Children)
	return sb.String()
}

// Builder assembles a DocTree from a flat stream of headings and
// paragraphs. A heading nests under the nearest open heading of a lower
// level; paragraphs attach to the innermost open heading.
type Builder struct {
	title   string
	root    *DocNode
	stack   []level
	pending strings.Builder
}

type level struct {
	node  *DocNode
	depth int
}

func NewBuilder(title string) *Builder {
	root := &DocNode{Title: title}
	return &Builder{title: title, root: root, stack: []level{{node: root}}}
}

// Heading opens a section at depth (1 for a top-level heading).
func (b *Builder) Heading(depth int, title string) {
	b.flush()
	n := &DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, level{node: n, depth: depth})
}

// Paragraph appends text to the current section. Blank text is ignored.
func (b *Builder) Paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.pending.Len() > 0 {
		b.pending.WriteString("\n\n")
	}
	b.pending.WriteString(text)
}

func (b *Builder) flush() {
	t := strings.TrimSpace(b.pending.String())
	b.pending.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// Tree returns the assembled document. Text that preceded the first
// heading becomes a leading untitled node.
func (b *Builder) Tree() *DocTree {
	b.flush()
	tree := &DocTree{Title: b.title}
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	return tree
}
