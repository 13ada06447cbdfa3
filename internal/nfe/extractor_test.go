package nfe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

const fullNFe = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe35230112345678000190550010000012341000012345" versao="4.00">
      <ide>
        <cUF>35</cUF>
        <natOp>VENDA</natOp>
        <mod>55</mod>
        <serie>1</serie>
        <nNF>1234</nNF>
      </ide>
      <emit>
        <CNPJ>12345678000190</CNPJ>
        <xNome>Distribuidora Paulista LTDA</xNome>
        <enderEmit>
          <xLgr>Av. Paulista</xLgr>
          <nro>1000</nro>
          <xMun>Sao Paulo</xMun>
        </enderEmit>
      </emit>
      <dest>
        <CNPJ>98765432000110</CNPJ>
        <xNome>Mercado Central ME</xNome>
        <enderDest>
          <xLgr>Rua das Flores</xLgr>
          <nro>42</nro>
          <xBairro>Centro</xBairro>
          <xMun>Campinas</xMun>
        </enderDest>
      </dest>
      <transp>
        <modFrete>0</modFrete>
        <vol>
          <qVol>3</qVol>
          <pesoL>10.500</pesoL>
          <pesoB>12.750</pesoB>
        </vol>
      </transp>
    </infNFe>
  </NFe>
</nfeProc>`

func TestExtractAllFields(t *testing.T) {
	ex := NewExtractor(nil)
	got, err := ex.ExtractBytes([]byte(fullNFe), "full.xml")
	if err != nil {
		t.Fatal(err)
	}
	want := entity.InvoiceRecord{
		Nota:      "1234",
		Emissor:   "Distribuidora Paulista LTDA",
		Cliente:   "Mercado Central ME",
		Rua:       "Rua das Flores",
		Numero:    "42",
		Municipio: "Campinas",
		PesoBruto: "12.750",
	}
	if got != want {
		t.Fatalf("Extract = %+v, want %+v", got, want)
	}
}

func TestExtractMissingFields(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want entity.InvoiceRecord
	}{
		{
			name: "no volume block",
			doc: `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
				<ide><nNF>77</nNF></ide>
				<emit><xNome>Emitente</xNome></emit>
				<dest><xNome>Cliente</xNome><enderDest><xLgr>Rua A</xLgr><nro>1</nro><xMun>Recife</xMun></enderDest></dest>
			</infNFe></NFe>`,
			want: entity.InvoiceRecord{Nota: "77", Emissor: "Emitente", Cliente: "Cliente", Rua: "Rua A", Numero: "1", Municipio: "Recife"},
		},
		{
			name: "no dest block",
			doc: `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
				<ide><nNF>78</nNF></ide>
				<emit><xNome>Emitente</xNome><enderEmit><xLgr>Rua Emit</xLgr><nro>9</nro><xMun>Natal</xMun></enderEmit></emit>
				<transp><vol><pesoB>1.000</pesoB></vol></transp>
			</infNFe></NFe>`,
			want: entity.InvoiceRecord{Nota: "78", Emissor: "Emitente", PesoBruto: "1.000"},
		},
		{
			name: "no nNF",
			doc: `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
				<emit><xNome>Emitente</xNome></emit>
			</infNFe></NFe>`,
			want: entity.InvoiceRecord{Emissor: "Emitente"},
		},
		{
			name: "empty elements",
			doc: `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
				<ide><nNF/></ide>
				<dest><xNome></xNome><enderDest><nro>5</nro></enderDest></dest>
			</infNFe></NFe>`,
			want: entity.InvoiceRecord{Numero: "5"},
		},
		{
			name: "pesoB outside vol is ignored",
			doc: `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
				<ide><nNF>79</nNF></ide>
				<transp><pesoB>99</pesoB></transp>
			</infNFe></NFe>`,
			want: entity.InvoiceRecord{Nota: "79"},
		},
		{
			name: "root element only",
			doc:  `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"/>`,
			want: entity.InvoiceRecord{},
		},
	}

	ex := NewExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ex.ExtractBytes([]byte(tt.doc), tt.name+".xml")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractIssuerIsFirstXNome(t *testing.T) {
	// dest precedes emit: the issuer column takes the recipient's name.
	doc := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
		<ide><nNF>5</nNF></ide>
		<dest><xNome>Destinatario</xNome></dest>
		<emit><xNome>Emitente</xNome></emit>
	</infNFe></NFe>`

	got, err := NewExtractor(nil).ExtractBytes([]byte(doc), "swapped.xml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Emissor != "Destinatario" {
		t.Errorf("Emissor = %q, want %q", got.Emissor, "Destinatario")
	}
	if got.Cliente != "Destinatario" {
		t.Errorf("Cliente = %q, want %q", got.Cliente, "Destinatario")
	}
}

func TestExtractIgnoresOtherNamespaces(t *testing.T) {
	doc := `<root xmlns="http://www.portalfiscal.inf.br/nfe" xmlns:x="urn:other">
		<x:nNF>999</x:nNF>
		<ide><nNF>1</nNF></ide>
		<x:dest><xNome>Not a recipient</xNome></x:dest>
	</root>`

	got, err := NewExtractor(nil).ExtractBytes([]byte(doc), "ns.xml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Nota != "1" {
		t.Errorf("Nota = %q, want %q", got.Nota, "1")
	}
	if got.Emissor != "Not a recipient" {
		t.Errorf("Emissor = %q, want %q", got.Emissor, "Not a recipient")
	}
	if got.Cliente != "" {
		t.Errorf("Cliente = %q, want empty (dest is outside the NF-e namespace)", got.Cliente)
	}
}

func TestExtractUnqualifiedDocumentYieldsEmptyRecord(t *testing.T) {
	doc := `<NFe><infNFe><ide><nNF>1</nNF></ide></infNFe></NFe>`
	got, err := NewExtractor(nil).ExtractBytes([]byte(doc), "plain.xml")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsEmpty() {
		t.Errorf("expected empty record, got %+v", got)
	}
}

func TestExtractLeadingTextOnly(t *testing.T) {
	doc := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
		<ide><nNF> 0042 <!-- note -->tail</nNF></ide>
		<dest><xNome>Loja <b>X</b></xNome></dest>
	</infNFe></NFe>`

	got, err := NewExtractor(nil).ExtractBytes([]byte(doc), "text.xml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Nota != " 0042 tail" {
		t.Errorf("Nota = %q, want %q", got.Nota, " 0042 tail")
	}
	if got.Cliente != "Loja " {
		t.Errorf("Cliente = %q, want %q", got.Cliente, "Loja ")
	}
}

func TestExtractTextSpansCommentsAndInstructions(t *testing.T) {
	doc := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
		<ide><nNF>12<!-- c -->34<?pi x?>56</nNF></ide>
		<emit><xNome>A<!-- c --><b/>B</xNome></emit>
	</infNFe></NFe>`

	got, err := NewExtractor(nil).ExtractBytes([]byte(doc), "comments.xml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Nota != "123456" {
		t.Errorf("Nota = %q, want %q", got.Nota, "123456")
	}
	if got.Emissor != "A" {
		t.Errorf("Emissor = %q, want %q", got.Emissor, "A")
	}
}

func TestExtractAcceptsDeclaredPrefixes(t *testing.T) {
	doc := `<n:NFe xmlns:n="http://www.portalfiscal.inf.br/nfe" xmlns:ds="urn:sig" xml:lang="pt">
		<n:infNFe ds:id="1"><n:ide><n:nNF>77</n:nNF></n:ide></n:infNFe>
	</n:NFe>`

	got, err := NewExtractor(nil).ExtractBytes([]byte(doc), "prefixed.xml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Nota != "77" {
		t.Errorf("Nota = %q, want %q", got.Nota, "77")
	}
}

func TestExtractDecodesLatin1(t *testing.T) {
	head := `<?xml version="1.0" encoding="ISO-8859-1"?>` +
		`<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe><ide><nNF>10</nNF></ide>` +
		`<dest><xNome>Jo`
	tail := `o</xNome><enderDest><xMun>S`
	end := `o Jos`
	// 0xE3 is "ã" and 0xE9 is "é" in ISO-8859-1.
	doc := []byte(head)
	doc = append(doc, 0xE3)
	doc = append(doc, tail...)
	doc = append(doc, 0xE3)
	doc = append(doc, end...)
	doc = append(doc, 0xE9)
	doc = append(doc, `</xMun></enderDest></dest></infNFe></NFe>`...)

	got, err := NewExtractor(nil).ExtractBytes(doc, "latin1.xml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Cliente != "João" {
		t.Errorf("Cliente = %q, want %q", got.Cliente, "João")
	}
	if got.Municipio != "São José" {
		t.Errorf("Municipio = %q, want %q", got.Municipio, "São José")
	}
}

func TestExtractSkipsUTF8BOM(t *testing.T) {
	doc := append([]byte{0xEF, 0xBB, 0xBF}, fullNFe...)
	got, err := NewExtractor(nil).ExtractBytes(doc, "bom.xml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Nota != "1234" {
		t.Errorf("Nota = %q, want %q", got.Nota, "1234")
	}
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"whitespace only", "  \n "},
		{"not xml", "this is not xml"},
		{"unclosed", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><ide><nNF>1</nNF></ide>`},
		{"mismatched", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><ide><nNF>1</ide></nNF></NFe>`},
		{"two roots", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"/><NFe xmlns="http://www.portalfiscal.inf.br/nfe"/>`},
		{"trailing text", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"/>garbage`},
		{"broken after targets", strings.TrimSuffix(fullNFe, "</nfeProc>")},
		{"undefined entity", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><nNF>&bogus;</nNF></NFe>`},
		{"duplicate attribute", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe" a="1" a="2"><ide><nNF>1</nNF></ide></NFe>`},
		{"duplicate namespaced attribute", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe" xmlns:p="urn:p" p:a="1" p:a="2"/>`},
		{"unbound element prefix", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><ide><x:nNF>1</x:nNF><nNF>2</nNF></ide></NFe>`},
		{"unbound attribute prefix", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><ide x:a="1"><nNF>2</nNF></ide></NFe>`},
		{"prefix out of scope", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><a xmlns:x="urn:x"/><x:b/></NFe>`},
	}

	ex := NewExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ex.ExtractBytes([]byte(tt.doc), "bad.xml")
			if err == nil {
				t.Fatalf("expected error, got record %+v", got)
			}
			if !errors.Is(err, common.ErrMalformedDocument) {
				t.Errorf("error %v does not match ErrMalformedDocument", err)
			}
			var docErr *common.DocumentError
			if !errors.As(err, &docErr) {
				t.Fatalf("error %T is not a *common.DocumentError", err)
			}
			if docErr.Name != "bad.xml" {
				t.Errorf("DocumentError.Name = %q, want %q", docErr.Name, "bad.xml")
			}
			if !got.IsEmpty() {
				t.Errorf("expected placeholder record, got %+v", got)
			}
			if len(got.Row()) != entity.RecordWidth {
				t.Errorf("placeholder has %d fields, want %d", len(got.Row()), entity.RecordWidth)
			}
		})
	}
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nota-1234.xml")
	if err := os.WriteFile(path, []byte(fullNFe), 0o644); err != nil {
		t.Fatal(err)
	}

	ex := NewExtractor(nil)
	got, err := ex.ExtractFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nota != "1234" {
		t.Errorf("Nota = %q, want %q", got.Nota, "1234")
	}

	_, err = ex.ExtractFile(filepath.Join(dir, "missing.xml"))
	var docErr *common.DocumentError
	if !errors.As(err, &docErr) || docErr.Name != "missing.xml" {
		t.Errorf("expected DocumentError for missing.xml, got %v", err)
	}
}

func TestMatchOrEmpty(t *testing.T) {
	if NotFound.OrEmpty() != "" {
		t.Error("NotFound should resolve to empty string")
	}
	if Found("").OrEmpty() != "" {
		t.Error("Found(\"\") should resolve to empty string")
	}
	if Found("x").OrEmpty() != "x" {
		t.Error("Found(\"x\") should resolve to x")
	}
}
