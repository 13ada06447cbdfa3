package aggregate

import (
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// Summarize computes the summary statistics of t.
//
// The most frequent value is the one with the highest count; when counts tie,
// the value that appears first in table order wins. An empty table yields zero
// counts and empty modes.
func Summarize(t entity.InvoiceTable) entity.SummaryStats {
	notas := newCounter(len(t))
	emissores := newCounter(len(t))
	clientes := newCounter(len(t))
	for _, r := range t {
		notas.add(r.Nota)
		emissores.add(r.Emissor)
		clientes.add(r.Cliente)
	}
	return entity.SummaryStats{
		TotalNotas:      notas.distinct(),
		UniqueEmissores: emissores.distinct(),
		UniqueClientes:  clientes.distinct(),
		TopNota:         notas.mode(),
		TopCliente:      clientes.mode(),
	}
}

// counter tallies values while remembering first-appearance order.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter(capacity int) *counter {
	return &counter{counts: make(map[string]int, capacity)}
}

func (c *counter) add(v string) {
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

func (c *counter) distinct() int {
	return len(c.order)
}

func (c *counter) mode() string {
	best, bestN := "", 0
	for _, v := range c.order {
		if n := c.counts[v]; n > bestN {
			best, bestN = v, n
		}
	}
	return best
}
