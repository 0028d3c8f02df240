package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedLine marks a vertex or face line that could not be used.
var ErrMalformedLine = errors.New("malformed mesh line")

// ErrNoDirectory is returned by ListObjFiles when the directory does not exist.
var ErrNoDirectory = errors.New("directory not found")

// LineError describes one skipped line of an OBJ file.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Reason)
}

func (e *LineError) Unwrap() error { return ErrMalformedLine }

// pendingFace remembers where a face came from until all vertices are known.
type pendingFace struct {
	line int
	text string
	face Face
}

// ParseObj reads the vertex and face records of an OBJ stream. Only "v" and "f" lines
// are interpreted. Lines that cannot be parsed, and faces referencing vertices the file
// never declares, are skipped and returned in skipped; they never fail the parse.
func ParseObj(r io.Reader, name string) (*Mesh, []*LineError, error) {
	m := &Mesh{Name: name}
	var pending []pendingFace
	var skipped []*LineError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "v":
			if len(parts) < 4 {
				skipped = append(skipped, &LineError{lineNum, line, "vertex needs 3 coordinates"})
				continue
			}
			x, err1 := strconv.ParseFloat(parts[1], 64)
			y, err2 := strconv.ParseFloat(parts[2], 64)
			z, err3 := strconv.ParseFloat(parts[3], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				skipped = append(skipped, &LineError{lineNum, line, "invalid vertex coordinate"})
				continue
			}
			if !finite(x) || !finite(y) || !finite(z) {
				skipped = append(skipped, &LineError{lineNum, line, "non-finite vertex coordinate"})
				continue
			}
			m.Vertices = append(m.Vertices, Vertex{x, y, z})
		case "f":
			if len(parts) < 4 {
				skipped = append(skipped, &LineError{lineNum, line, "face needs at least 3 vertices"})
				continue
			}
			face, reason := parseFace(parts[1:], len(m.Vertices))
			if reason != "" {
				skipped = append(skipped, &LineError{lineNum, line, reason})
				continue
			}
			pending = append(pending, pendingFace{lineNum, line, face})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading %s: %w", name, err)
	}

	for _, p := range pending {
		if !inRange(p.face, len(m.Vertices)) {
			skipped = append(skipped, &LineError{p.line, p.text, "vertex index out of range"})
			continue
		}
		m.Faces = append(m.Faces, p.face)
	}
	return m, skipped, nil
}

// parseFace converts "f" tokens to 0-based indices. Relative (negative) indices are
// resolved against the vertices declared so far.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseFace(tokens []string, declared int) (Face, string) {
	face := make(Face, 0, len(tokens))
	for _, tok := range tokens {
		head, _, _ := strings.Cut(tok, "/")
		n, err := strconv.Atoi(head)
		if err != nil {
			return nil, "invalid vertex index"
		}
		switch {
		case n > 0:
			face = append(face, n-1)
		case n < 0:
			face = append(face, declared+n)
		default:
			return nil, "vertex index 0"
		}
	}
	return face, ""
}

func inRange(face Face, n int) bool {
	for _, idx := range face {
		if idx < 0 || idx >= n {
			return false
		}
	}
	return true
}

// ReadObj parses the OBJ file at path. The mesh is named after the file's base name.
func ReadObj(path string) (*Mesh, []*LineError, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	return ParseObj(file, filepath.Base(path))
}

// WriteObj writes m as OBJ text. Coordinates use the shortest representation that
// parses back to the same float64.
func WriteObj(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n", m.Name)
	fmt.Fprintf(bw, "# Vertices: %d\n", len(m.Vertices))
	fmt.Fprintf(bw, "# Faces: %d\n", len(m.Faces))

	for _, v := range m.Vertices {
		bw.WriteString("v ")
		bw.WriteString(formatCoord(v.X))
		bw.WriteByte(' ')
		bw.WriteString(formatCoord(v.Y))
		bw.WriteByte(' ')
		bw.WriteString(formatCoord(v.Z))
		bw.WriteByte('\n')
	}
	for _, f := range m.Faces {
		bw.WriteByte('f')
		for _, idx := range f {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(idx + 1))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SaveObj writes m to path, creating or truncating the file.
func SaveObj(path string, m *Mesh) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteObj(file, m); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ListObjFiles returns the *.obj files directly inside dir, sorted by name.
func ListObjFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoDirectory)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, ErrNoDirectory)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".obj") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
