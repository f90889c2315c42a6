package pipeline

import (
	"regexp"
	"strings"

	"github.com/alnah/go-mdpost/internal/syntax"
)

// StageExtended names the stage adding tables, strikethrough, bare autolinks
// and task list items.
const StageExtended = "extended"

// ExtendedStage recognizes the extended syntax on top of CommonMark. It runs
// after math so that "|" and "~~" inside expressions are never interpreted.
func ExtendedStage() Stage {
	return Stage{Name: StageExtended, Requires: []string{StageMath}, Apply: applyExtended}
}

func applyExtended(root *syntax.Node) (*syntax.Node, error) {
	root = root.Clone()
	if err := syntax.Transform(root, func(n *syntax.Node) ([]*syntax.Node, error) {
		if n.Kind == syntax.KindParagraph {
			if nodes := tableFromParagraph(n); nodes != nil {
				return nodes, nil
			}
		}
		return []*syntax.Node{n}, nil
	}); err != nil {
		return nil, err
	}

	strikeAll(root)
	linkify(root)
	markTasks(root)
	return root, nil
}

// Tables

var delimiterCell = regexp.MustCompile(`^:?-+:?$`)

// tableFromParagraph splits a paragraph holding a table: the first line
// followed by a delimiter row with the same column count starts the table,
// and the lines before it stay a paragraph. It returns nil when there is no
// table.
func tableFromParagraph(p *syntax.Node) []*syntax.Node {
	lines, breaks := splitLines(p.Children)
	for i := 1; i < len(lines); i++ {
		aligns, ok := parseDelimiterRow(lines[i])
		if !ok {
			continue
		}
		header := splitCells(lines[i-1])
		if len(header) != len(aligns) {
			continue
		}

		var out []*syntax.Node
		if i > 1 {
			out = append(out, joinLines(lines[:i-1], breaks, p.Pos))
		}
		pos := p.Pos
		if len(lines[i-1]) > 0 {
			pos = lines[i-1][0].Pos
		}
		table := syntax.New(syntax.KindTable, pos).SetAttr(syntax.AttrAlign, strings.Join(aligns, ","))
		table.Append(tableRow(header, aligns, true, pos))
		for _, line := range lines[i+1:] {
			table.Append(tableRow(splitCells(line), aligns, false, pos))
		}
		return append(out, table)
	}
	return nil
}

// splitLines breaks inline content at newlines inside text and at hard
// line breaks. breaks[i] is the line break node ending lines[i], or nil for
// a soft break.
func splitLines(inlines []*syntax.Node) (lines [][]*syntax.Node, breaks []*syntax.Node) {
	lines = [][]*syntax.Node{nil}
	for _, n := range inlines {
		switch {
		case n.Kind == syntax.KindLineBreak:
			lines = append(lines, nil)
			breaks = append(breaks, n)
		case n.Kind == syntax.KindText && strings.Contains(n.Value(), "\n"):
			parts := strings.Split(n.Value(), "\n")
			for i, part := range parts {
				if i > 0 {
					lines = append(lines, nil)
					breaks = append(breaks, nil)
				}
				if part != "" {
					lines[len(lines)-1] = append(lines[len(lines)-1], syntax.NewText(part, n.Pos))
				}
			}
		default:
			lines[len(lines)-1] = append(lines[len(lines)-1], n)
		}
	}
	return lines, breaks
}

// joinLines rebuilds a paragraph from the leading lines of splitLines.
func joinLines(lines [][]*syntax.Node, breaks []*syntax.Node, pos syntax.Position) *syntax.Node {
	var children []*syntax.Node
	for i, line := range lines {
		if i > 0 {
			if br := breaks[i-1]; br != nil {
				children = append(children, br)
			} else {
				children = append(children, syntax.NewText("\n", pos))
			}
		}
		children = append(children, line...)
	}
	return syntax.New(syntax.KindParagraph, pos).Append(mergeText(children)...)
}

// parseDelimiterRow accepts a line of text made of "---", ":--", "--:" and
// ":-:" cells separated by pipes.
func parseDelimiterRow(line []*syntax.Node) ([]string, bool) {
	var b strings.Builder
	for _, n := range line {
		if n.Kind != syntax.KindText {
			return nil, false
		}
		b.WriteString(n.Value())
	}
	row := strings.TrimSpace(b.String())
	if !strings.Contains(row, "|") {
		return nil, false
	}
	row = strings.TrimSuffix(strings.TrimPrefix(row, "|"), "|")

	var aligns []string
	for _, cell := range strings.Split(row, "|") {
		cell = strings.TrimSpace(cell)
		if !delimiterCell.MatchString(cell) {
			return nil, false
		}
		left, right := strings.HasPrefix(cell, ":"), strings.HasSuffix(cell, ":")
		switch {
		case left && right:
			aligns = append(aligns, "center")
		case left:
			aligns = append(aligns, "left")
		case right:
			aligns = append(aligns, "right")
		default:
			aligns = append(aligns, "")
		}
	}
	return aligns, len(aligns) > 0
}

// splitCells divides a row at "|" found in text. Other inline nodes, math
// and inline code included, are never split.
func splitCells(line []*syntax.Node) [][]*syntax.Node {
	const sep = "|"
	var toks []*syntax.Node // nil marks a separator
	for _, n := range line {
		if n.Kind != syntax.KindText || !strings.Contains(n.Value(), sep) {
			toks = append(toks, n)
			continue
		}
		for i, part := range strings.Split(n.Value(), sep) {
			if i > 0 {
				toks = append(toks, nil)
			}
			if part != "" {
				toks = append(toks, syntax.NewText(part, n.Pos))
			}
		}
	}

	toks = trimBlankText(toks)
	if len(toks) > 0 && toks[0] == nil {
		toks = toks[1:]
	}
	if len(toks) > 0 && toks[len(toks)-1] == nil {
		toks = toks[:len(toks)-1]
	}

	cells := [][]*syntax.Node{nil}
	for _, t := range toks {
		if t == nil {
			cells = append(cells, nil)
			continue
		}
		cells[len(cells)-1] = append(cells[len(cells)-1], t)
	}
	for i := range cells {
		cells[i] = trimCell(cells[i])
	}
	return cells
}

// trimBlankText drops whitespace-only text at both ends.
func trimBlankText(toks []*syntax.Node) []*syntax.Node {
	isBlank := func(n *syntax.Node) bool {
		return n != nil && n.Kind == syntax.KindText && strings.TrimSpace(n.Value()) == ""
	}
	for len(toks) > 0 && isBlank(toks[0]) {
		toks = toks[1:]
	}
	for len(toks) > 0 && isBlank(toks[len(toks)-1]) {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func trimCell(cell []*syntax.Node) []*syntax.Node {
	cell = trimBlankText(cell)
	if len(cell) == 0 {
		return nil
	}
	if first := cell[0]; first.Kind == syntax.KindText {
		first.SetAttr(syntax.AttrValue, strings.TrimLeft(first.Value(), " \t"))
	}
	if last := cell[len(cell)-1]; last.Kind == syntax.KindText {
		last.SetAttr(syntax.AttrValue, strings.TrimRight(last.Value(), " \t"))
	}
	return cell
}

func tableRow(cells [][]*syntax.Node, aligns []string, header bool, pos syntax.Position) *syntax.Node {
	row := syntax.New(syntax.KindTableRow, pos)
	if header {
		row.SetBoolAttr(syntax.AttrHeader, true)
	}
	for i, align := range aligns {
		cell := syntax.New(syntax.KindTableCell, pos)
		if header {
			cell.SetBoolAttr(syntax.AttrHeader, true)
		}
		if align != "" {
			cell.SetAttr(syntax.AttrAlign, align)
		}
		if i < len(cells) {
			cell.Children = cells[i]
			if len(cells[i]) > 0 {
				cell.Pos = cells[i][0].Pos
			}
		}
		row.Append(cell)
	}
	return row
}

// Strikethrough

const strikeMarker = "~~"

// strikeAll rewrites "~~text~~" among the children of every node. Both
// markers must share a parent.
func strikeAll(root *syntax.Node) {
	_ = syntax.Walk(root, func(n, _ *syntax.Node) error {
		if hasStrikeMarker(n.Children) {
			n.Children = strike(n.Children)
		}
		return nil
	})
}

func hasStrikeMarker(children []*syntax.Node) bool {
	for _, c := range children {
		if c.Kind == syntax.KindText && strings.Contains(c.Value(), strikeMarker) {
			return true
		}
	}
	return false
}

func strike(children []*syntax.Node) []*syntax.Node {
	var toks []*syntax.Node // nil marks a delimiter
	var markerPos []syntax.Position
	for _, c := range children {
		if c.Kind != syntax.KindText || !strings.Contains(c.Value(), strikeMarker) {
			toks = append(toks, c)
			continue
		}
		for i, part := range strings.Split(c.Value(), strikeMarker) {
			if i > 0 {
				toks = append(toks, nil)
				markerPos = append(markerPos, c.Pos)
			}
			if part != "" {
				toks = append(toks, syntax.NewText(part, c.Pos))
			}
		}
	}

	var out []*syntax.Node
	marker := 0
	pairs := len(markerPos) / 2
	for i := 0; i < len(toks); i++ {
		if toks[i] != nil {
			out = append(out, toks[i])
			continue
		}
		if marker/2 >= pairs {
			// Unpaired trailing marker stays literal.
			out = append(out, syntax.NewText(strikeMarker, markerPos[marker]))
			marker++
			continue
		}
		end := i + 1
		for toks[end] != nil {
			end++
		}
		if end == i+1 {
			out = append(out, syntax.NewText(strikeMarker+strikeMarker, markerPos[marker]))
		} else {
			s := syntax.New(syntax.KindStrikethrough, markerPos[marker])
			s.Children = mergeText(toks[i+1 : end])
			out = append(out, s)
		}
		marker += 2
		i = end
	}
	return mergeText(out)
}

// mergeText joins adjacent plain text nodes.
func mergeText(nodes []*syntax.Node) []*syntax.Node {
	out := make([]*syntax.Node, 0, len(nodes))
	for _, n := range nodes {
		if len(out) > 0 {
			last := out[len(out)-1]
			if isPlainText(last) && isPlainText(n) {
				last.SetAttr(syntax.AttrValue, last.Value()+n.Value())
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

func isPlainText(n *syntax.Node) bool {
	return n.Kind == syntax.KindText && len(n.Attrs) == 1
}

// Autolinks

var bareURL = regexp.MustCompile(`\b(?:https?://|www\.)[^\s<]*[^\s<?!.,:*_~'"]`)

// Subtrees never scanned for bare URLs.
var noLinkKinds = map[syntax.Kind]bool{
	syntax.KindLink: true, syntax.KindImage: true, syntax.KindInlineCode: true,
	syntax.KindCodeBlock: true, syntax.KindMath: true, syntax.KindHTML: true,
}

func linkify(n *syntax.Node) {
	if noLinkKinds[n.Kind] {
		return
	}
	var out []*syntax.Node
	changed := false
	for _, c := range n.Children {
		if c.Kind == syntax.KindText && !c.BoolAttr(syntax.AttrVerbatim) {
			if parts := autolinkText(c); parts != nil {
				out = append(out, parts...)
				changed = true
				continue
			}
		}
		linkify(c)
		out = append(out, c)
	}
	if changed {
		n.Children = out
	}
}

// autolinkText splits a text node around bare URLs, or returns nil.
func autolinkText(t *syntax.Node) []*syntax.Node {
	v := t.Value()
	matches := bareURL.FindAllStringIndex(v, -1)
	if matches == nil {
		return nil
	}
	var out []*syntax.Node
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		url := trimUnbalancedParens(v[start:end])
		end = start + len(url)
		if start > prev {
			out = append(out, syntax.NewText(v[prev:start], t.Pos))
		}
		href := url
		if strings.HasPrefix(href, "www.") {
			href = "http://" + href
		}
		out = append(out, syntax.New(syntax.KindLink, t.Pos).
			SetAttr(syntax.AttrHref, href).
			SetBoolAttr(syntax.AttrAutolink, true).
			Append(syntax.NewText(url, t.Pos)))
		prev = end
	}
	if prev < len(v) {
		out = append(out, syntax.NewText(v[prev:], t.Pos))
	}
	return out
}

func trimUnbalancedParens(url string) string {
	for strings.HasSuffix(url, ")") && strings.Count(url, "(") < strings.Count(url, ")") {
		url = url[:len(url)-1]
	}
	return url
}

// Task lists

var taskPrefix = regexp.MustCompile(`^\[([ xX])\](?:[ \t]+|$)`)

func markTasks(root *syntax.Node) {
	_ = syntax.Walk(root, func(n, _ *syntax.Node) error {
		if n.Kind != syntax.KindListItem || len(n.Children) == 0 {
			return nil
		}
		holder := n
		if first := n.Children[0]; first.Kind == syntax.KindParagraph {
			holder = first
		}
		if len(holder.Children) == 0 || holder.Children[0].Kind != syntax.KindText {
			return nil
		}
		text := holder.Children[0]
		m := taskPrefix.FindStringSubmatch(text.Value())
		if m == nil {
			return nil
		}
		n.SetBoolAttr(syntax.AttrTask, true)
		n.SetBoolAttr(syntax.AttrChecked, m[1] != " ")
		if rest := text.Value()[len(m[0]):]; rest != "" {
			text.SetAttr(syntax.AttrValue, rest)
		} else {
			holder.Children = holder.Children[1:]
		}
		return nil
	})
}
