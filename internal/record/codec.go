package record

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"tmamon/internal/services"
)

// Tag names of the monitor.fhi format. The layout is a fixed contract with
// the portal's reader; do not reorder blocks.
const (
	tagRoot       = "monitor_record"
	tagHeader     = "header"
	tagTutor      = "tutor_details"
	tagTMA        = "tma_details"
	tagMonitoring = "monitoring_details"
	tagStudents   = "student_list"
	tagStudent    = "student_details"
	tagFileList   = "file_list"
	tagFile       = "file_details"
	tagSystem     = "system_details"
	tagFooter     = "footer"
)

const formatVersion = "1"

// Encode serializes a record to the monitor.fhi byte format, Windows-1252
// encoded for the legacy reader.
func Encode(r *MonitoringRecord) ([]byte, error) {
	if r == nil {
		return nil, errors.New("record: nil record")
	}

	var b strings.Builder
	writeOpen(&b, tagRoot, 0)

	writeOpen(&b, tagHeader, 1)
	writeLeaf(&b, "version", formatVersion, 2)
	created := r.Created
	if created.IsZero() {
		created = time.Now()
	}
	writeLeaf(&b, "created", created.Format("02/01/2006"), 2)
	writeClose(&b, tagHeader, 1)

	writeOpen(&b, tagTutor, 1)
	writeLeaf(&b, "tutor_id", r.TutorID, 2)
	writeLeaf(&b, "tutor_name", r.TutorName, 2)
	writeLeaf(&b, "region", r.Region, 2)
	writeClose(&b, tagTutor, 1)

	writeOpen(&b, tagTMA, 1)
	writeLeaf(&b, "course", r.Course, 2)
	writeLeaf(&b, "tma", r.TMA, 2)
	writeLeaf(&b, "submission", r.Submission, 2)
	writeClose(&b, tagTMA, 1)

	writeOpen(&b, tagMonitoring, 1)
	writeLeaf(&b, "comment", escapeComment(r.Comment), 2)
	for i, flag := range r.Ratings {
		writeLeaf(&b, fmt.Sprintf("flag%d", i+1), flag, 2)
	}
	writeClose(&b, tagMonitoring, 1)

	writeOpen(&b, tagStudents, 1)
	for _, student := range r.Students {
		writeOpen(&b, tagStudent, 2)
		writeLeaf(&b, "student_id", student.ID, 3)
		writeLeaf(&b, "forename", student.Forename, 3)
		writeLeaf(&b, "surname", student.Surname, 3)
		writeLeaf(&b, "marking_grade", student.MarkingGrade, 3)
		writeLeaf(&b, "feedback_grade", student.FeedbackGrade, 3)
		writeLeaf(&b, "complete", student.Complete, 3)
		writeLeaf(&b, "sent", student.Sent, 3)
		writeLeaf(&b, "received", student.Received, 3)
		writeOpen(&b, tagFileList, 3)
		for _, file := range student.Files {
			writeOpen(&b, tagFile, 4)
			writeLeaf(&b, "file_path", file.Path, 5)
			writeLeaf(&b, "annotated", string(file.Annotation), 5)
			writeClose(&b, tagFile, 4)
		}
		writeClose(&b, tagFileList, 3)
		writeClose(&b, tagStudent, 2)
	}
	writeClose(&b, tagStudents, 1)

	writeOpen(&b, tagSystem, 1)
	writeLeaf(&b, "status", string(r.Status), 2)
	writeLeaf(&b, "zip_date", r.Zip.Date, 2)
	writeLeaf(&b, "zip_path", r.Zip.ArchivePath, 2)
	writeLeaf(&b, "zip_file", r.Zip.ArchiveFile, 2)
	writeClose(&b, tagSystem, 1)

	writeOpen(&b, tagFooter, 1)
	writeLeaf(&b, "end", "true", 2)
	writeClose(&b, tagFooter, 1)

	writeClose(&b, tagRoot, 0)

	encoder := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	encoded, _, err := transform.Bytes(encoder, []byte(b.String()))
	if err != nil {
		return nil, fmt.Errorf("record: encode windows-1252: %w", err)
	}
	return encoded, nil
}

// Decode parses monitor.fhi bytes back into a MonitoringRecord. The returned
// comment is normalized to raw text (sentinels and &amp; undone) so that
// Decode(Encode(r)) reproduces r.
//
// Normalization is lossy at the edges of the legacy format: leaf values are
// whitespace-trimmed, so a comment's leading or trailing whitespace does not
// survive a round trip, and a comment containing a literal "[[lt]]" or
// "[[gt]]" decodes as "<" or ">" because those tokens are the sentinels'
// in-memory form.
func Decode(data []byte) (*MonitoringRecord, error) {
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, services.Wrap(services.ErrCorruptRecord, "record", "decode", "not valid windows-1252 text", err)
	}

	root, err := parseNode(prepareRaw(string(decoded)))
	if err != nil {
		return nil, services.Wrap(services.ErrCorruptRecord, "record", "parse", "malformed tag structure", err)
	}
	if root.tag != tagRoot {
		return nil, services.Wrap(services.ErrCorruptRecord, "record", "parse", fmt.Sprintf("unexpected root tag %q", root.tag), nil)
	}

	r := &MonitoringRecord{}

	header := root.childMap(tagHeader)
	if created, err := time.Parse("02/01/2006", header["created"]); err == nil {
		r.Created = created
	}

	tutor := root.childMap(tagTutor)
	r.TutorID = tutor["tutor_id"]
	r.TutorName = tutor["tutor_name"]
	r.Region = tutor["region"]

	tma := root.childMap(tagTMA)
	r.Course = tma["course"]
	r.TMA = tma["tma"]
	r.Submission = tma["submission"]

	monitoring := root.childMap(tagMonitoring)
	r.Comment = unescapeComment(monitoring["comment"])
	for i := range r.Ratings {
		r.Ratings[i] = monitoring[fmt.Sprintf("flag%d", i+1)]
	}

	if studentList := root.child(tagStudents); studentList != nil {
		for _, node := range studentList.children {
			if node.tag != tagStudent {
				continue
			}
			fields := node.asMap()
			student := StudentEntry{
				ID:            fields["student_id"],
				Forename:      fields["forename"],
				Surname:       fields["surname"],
				MarkingGrade:  fields["marking_grade"],
				FeedbackGrade: fields["feedback_grade"],
				Complete:      fields["complete"],
				Sent:          fields["sent"],
				Received:      fields["received"],
			}
			if fileList := node.child(tagFileList); fileList != nil {
				for _, fileNode := range fileList.children {
					if fileNode.tag != tagFile {
						continue
					}
					fileFields := fileNode.asMap()
					student.Files = append(student.Files, FileEntry{
						Path:       fileFields["file_path"],
						Annotation: Annotation(fileFields["annotated"]),
					})
				}
			}
			r.Students = append(r.Students, student)
		}
	}

	system := root.childMap(tagSystem)
	if status, ok := ParseStatus(system["status"]); ok {
		r.Status = status
	} else {
		r.Status = StatusUnmonitored
	}
	r.Zip = ZipMetadata{
		Date:        system["zip_date"],
		ArchivePath: system["zip_path"],
		ArchiveFile: system["zip_file"],
	}

	return r, nil
}

// WriteFile serializes r into path, replacing any previous record via a
// temporary sibling so a crash cannot leave a half-written file behind.
func WriteFile(path string, r *MonitoringRecord) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return services.Wrap(services.ErrIO, "record", "write", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrIO, "record", "replace", path, err)
	}
	return nil
}

// ReadFile loads and decodes the record at path. A missing file yields
// ErrNotFound; a file that fails to decode yields ErrCorruptRecord, which
// callers treat as record-absent.
func ReadFile(path string) (*MonitoringRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "record", "read", path, err)
		}
		return nil, services.Wrap(services.ErrIO, "record", "read", path, err)
	}
	r, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Summary is the lightweight view list screens render without a full decode.
type Summary struct {
	Path       string
	Course     string
	TMA        string
	TutorID    string
	Region     string
	Submission string
	Status     Status
	Students   int
	Comment    string
}

// ReadSummary extracts a short summary from the record at path. The comment
// is reduced to its first line with ampersand escapes undone, matching what
// list views display.
func ReadSummary(path string) (Summary, error) {
	r, err := ReadFile(path)
	if err != nil {
		return Summary{}, err
	}
	comment := r.Comment
	if idx := strings.IndexAny(comment, "\r\n"); idx >= 0 {
		comment = comment[:idx]
	}
	return Summary{
		Path:       path,
		Course:     r.Course,
		TMA:        r.TMA,
		TutorID:    r.TutorID,
		Region:     r.Region,
		Submission: r.Submission,
		Status:     r.Status,
		Students:   len(r.Students),
		Comment:    comment,
	}, nil
}

func writeOpen(b *strings.Builder, tag string, depth int) {
	b.WriteString(strings.Repeat("\t", depth))
	b.WriteByte('<')
	b.WriteString(tag)
	b.WriteString(">\n")
}

func writeClose(b *strings.Builder, tag string, depth int) {
	b.WriteString(strings.Repeat("\t", depth))
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">\n")
}

func writeLeaf(b *strings.Builder, tag, value string, depth int) {
	b.WriteString(strings.Repeat("\t", depth))
	b.WriteByte('<')
	b.WriteString(tag)
	b.WriteByte('>')
	b.WriteString(value)
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">\n")
}

// node is one parsed element of the tag tree. A node has either children or
// a text value, never both.
type node struct {
	tag      string
	value    string
	children []*node
}

func (n *node) child(tag string) *node {
	for _, c := range n.children {
		if c.tag == tag {
			return c
		}
	}
	return nil
}

// childMap returns the named child's leaves as a string map. Missing blocks
// and missing leaves read as empty strings, never as errors.
func (n *node) childMap(tag string) map[string]string {
	c := n.child(tag)
	if c == nil {
		return map[string]string{}
	}
	return c.asMap()
}

func (n *node) asMap() map[string]string {
	out := make(map[string]string, len(n.children))
	for _, c := range n.children {
		if len(c.children) == 0 {
			out[c.tag] = c.value
		}
	}
	return out
}

type parser struct {
	input string
	pos   int
}

func parseNode(input string) (*node, error) {
	p := &parser{input: input}
	p.skipSpace()
	n, err := p.parseElement()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing content at offset %d", p.pos)
	}
	return n, nil
}

func (p *parser) parseElement() (*node, error) {
	if !p.consume('<') {
		return nil, fmt.Errorf("expected '<' at offset %d", p.pos)
	}
	tag, err := p.readTagName()
	if err != nil {
		return nil, err
	}
	if !p.consume('>') {
		return nil, fmt.Errorf("unterminated opening tag %q", tag)
	}

	n := &node{tag: tag}

	// Lookahead decides between a child list and leaf text.
	mark := p.pos
	p.skipSpace()
	if p.peek() == '<' && p.peekAt(1) != '/' {
		for {
			p.skipSpace()
			if p.peek() == '<' && p.peekAt(1) == '/' {
				break
			}
			if p.pos >= len(p.input) {
				return nil, fmt.Errorf("unclosed element %q", tag)
			}
			child, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		}
	} else {
		p.pos = mark
		end := strings.Index(p.input[p.pos:], "</")
		if end < 0 {
			return nil, fmt.Errorf("unclosed element %q", tag)
		}
		n.value = p.input[p.pos : p.pos+end]
		p.pos += end
	}

	if err := p.consumeClose(tag); err != nil {
		return nil, err
	}
	if n.children == nil {
		n.value = strings.TrimSpace(n.value)
	}
	return n, nil
}

func (p *parser) consumeClose(tag string) error {
	closing := "</" + tag + ">"
	p.skipSpace()
	if !strings.HasPrefix(p.input[p.pos:], closing) {
		return fmt.Errorf("missing closing tag for %q at offset %d", tag, p.pos)
	}
	p.pos += len(closing)
	return nil
}

func (p *parser) readTagName() (string, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '>' {
			break
		}
		if c == '<' || c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			return "", fmt.Errorf("invalid tag name at offset %d", start)
		}
		p.pos++
	}
	if p.pos == start || p.pos >= len(p.input) {
		return "", fmt.Errorf("empty tag name at offset %d", start)
	}
	return p.input[start:p.pos], nil
}

func (p *parser) consume(c byte) bool {
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *parser) peekAt(offset int) byte {
	if p.pos+offset < len(p.input) {
		return p.input[p.pos+offset]
	}
	return 0
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}
