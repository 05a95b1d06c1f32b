package conn

import "github.com/vvka-141/d1sql/pkg/d1sql"

// txPolicy is the transaction behaviour of a connection. One is chosen in New
// and never changes.
type txPolicy interface {
	begin() error
	commit() error
	rollback() error
	active() bool
}

func newTxPolicy(p d1sql.TxPolicy) txPolicy {
	if p == d1sql.TxPolicyCounter {
		return &counterPolicy{}
	}
	return rejectPolicy{}
}

// rejectPolicy refuses all transaction control.
type rejectPolicy struct{}

func (rejectPolicy) begin() error    { return d1sql.ErrTransactionsUnsupported }
func (rejectPolicy) commit() error   { return d1sql.ErrTransactionsUnsupported }
func (rejectPolicy) rollback() error { return d1sql.ErrTransactionsUnsupported }
func (rejectPolicy) active() bool    { return false }

// counterPolicy tracks nesting depth only. Statements inside a "transaction" are
// applied immediately and Rollback undoes nothing.
type counterPolicy struct {
	depth int
}

func (p *counterPolicy) begin() error {
	p.depth++
	return nil
}

func (p *counterPolicy) commit() error {
	if p.depth == 0 {
		return d1sql.ErrNoActiveTransaction
	}
	p.depth--
	return nil
}

func (p *counterPolicy) rollback() error {
	return p.commit()
}

func (p *counterPolicy) active() bool {
	return p.depth > 0
}
