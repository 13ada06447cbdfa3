// Package nfe extracts the invoice fields surfaced in the table from NF-e XML documents.
package nfe

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// Namespace is the XML namespace of NF-e documents.
const Namespace = "http://www.portalfiscal.inf.br/nfe"

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor reads one NF-e document at a time. It holds no per-document state
// and is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract parses the document read from r and returns its invoice record.
// Absent elements yield empty fields. If the document is not well-formed XML
// the returned record is all-empty and the error is a *common.DocumentError
// carrying name.
func (e *Extractor) Extract(r io.Reader, name string) (entity.InvoiceRecord, error) {
	matches, err := scan(r)
	if err != nil {
		e.logger.Debug("nfe.extract.malformed", "document", name, "err", err)
		return entity.InvoiceRecord{}, common.NewDocumentError(name, err)
	}
	rec := entity.InvoiceRecord{
		Nota:      matches[0].OrEmpty(),
		Emissor:   matches[1].OrEmpty(),
		Cliente:   matches[2].OrEmpty(),
		Rua:       matches[3].OrEmpty(),
		Numero:    matches[4].OrEmpty(),
		Municipio: matches[5].OrEmpty(),
		PesoBruto: matches[6].OrEmpty(),
	}
	e.logger.Debug("nfe.extract.ok", "document", name, "nota", rec.Nota)
	return rec, nil
}

// ExtractBytes is Extract over an in-memory document.
func (e *Extractor) ExtractBytes(data []byte, name string) (entity.InvoiceRecord, error) {
	return e.Extract(bytes.NewReader(data), name)
}

// ExtractFile extracts the document at path, named by its base file name.
func (e *Extractor) ExtractFile(path string) (entity.InvoiceRecord, error) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return entity.InvoiceRecord{}, common.NewDocumentError(name, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			e.logger.Warn("nfe.close.failed", "path", path, "err", err)
		}
	}(f)
	return e.Extract(f, name)
}

// scan decodes the whole document and resolves every target. It fails if the
// document is not well-formed, even when all targets were already seen.
func scan(r io.Reader) ([len(targets)]Match, error) {
	var matches [len(targets)]Match

	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	dec := xml.NewDecoder(br)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		taken      [len(targets)]bool
		stack      []xml.Name
		ns         bindings
		openScopes = map[string]int{}

		// leading-text capture for the most recently opened matching element
		capturing []int
		capDepth  int
		capText   strings.Builder

		rootSeen   bool
		rootClosed bool
	)

	flush := func() {
		for _, idx := range capturing {
			matches[idx] = Found(capText.String())
		}
		capturing = capturing[:0]
		capText.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return matches, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootClosed {
				return matches, fmt.Errorf("extra element <%s> after the root element", t.Name.Local)
			}
			if err := ns.push(t); err != nil {
				return matches, err
			}
			flush()
			depth := len(stack)
			rootSeen = true

			if depth > 0 && t.Name.Space == Namespace {
				for i, tg := range targets {
					if taken[i] || tg.local != t.Name.Local {
						continue
					}
					if tg.scope != "" && openScopes[tg.scope] == 0 {
						continue
					}
					taken[i] = true
					capturing = append(capturing, i)
				}
				capDepth = depth
				openScopes[t.Name.Local]++
			}
			stack = append(stack, t.Name)

		case xml.EndElement:
			depth := len(stack) - 1
			if len(capturing) > 0 && depth == capDepth {
				flush()
			}
			if depth > 0 && t.Name.Space == Namespace {
				openScopes[t.Name.Local]--
			}
			stack = stack[:depth]
			ns.pop()
			if depth == 0 {
				rootClosed = true
			}

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return matches, errors.New("text outside the root element")
				}
				continue
			}
			if len(capturing) > 0 && len(stack)-1 == capDepth {
				capText.Write(t)
			}
		}
	}

	if !rootSeen {
		return matches, errors.New("no root element")
	}
	return matches, nil
}

// bindings holds the namespace URIs declared on each open element. The decoder
// leaves an unbound prefix in Name.Space, so any space not declared in scope
// came from an undeclared prefix.
type bindings [][]string

// push records the declarations of t and rejects unbound prefixes and
// repeated attributes on it.
func (b *bindings) push(t xml.StartElement) error {
	var uris []string
	for _, a := range t.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			uris = append(uris, a.Value)
		}
	}
	*b = append(*b, uris)

	if !b.bound(t.Name.Space) {
		return fmt.Errorf("unbound prefix %q on <%s>", t.Name.Space, t.Name.Local)
	}
	seen := make(map[xml.Name]struct{}, len(t.Attr))
	for _, a := range t.Attr {
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("duplicate attribute %q on <%s>", a.Name.Local, t.Name.Local)
		}
		seen[a.Name] = struct{}{}
		if a.Name.Space != "xmlns" && !b.bound(a.Name.Space) {
			return fmt.Errorf("unbound prefix %q on attribute %q", a.Name.Space, a.Name.Local)
		}
	}
	return nil
}

func (b *bindings) pop() {
	if n := len(*b); n > 0 {
		*b = (*b)[:n-1]
	}
}

func (b bindings) bound(space string) bool {
	if space == "" || space == xmlNamespace {
		return true
	}
	for i := len(b) - 1; i >= 0; i-- {
		for _, uri := range b[i] {
			if uri == space {
				return true
			}
		}
	}
	return false
}
