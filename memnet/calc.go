package memnet

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/beamkit/go-scan/pv"
)

// Expressions accepted by a calc record's .CALC field.
//
//   - "RNDM": each recompute produces a uniform random value in [0, 1).
//   - "SEQ:a,b,c": successive recomputes step through the listed values and
//     stick at the last one.
//   - a numeric literal: every recompute produces that constant.
const (
	ExprRandom = "RNDM"

	seqPrefix = "SEQ:"
)

// Calc is an in-memory calc record: a scalar whose value is recomputed from
// its expression each time the .PROC field is written.
type Calc struct {
	*Scalar

	exprMu sync.RWMutex
	expr   string
	seq    []float64
	seqIdx int
}

var _ pv.PV = (*Calc)(nil)

func newCalc(net *Network, name string) *Calc {
	return &Calc{
		Scalar: newScalar(net, name, 0),
		expr:   ExprRandom,
	}
}

// Expression returns the record's current expression.
func (c *Calc) Expression() string {
	c.exprMu.RLock()
	defer c.exprMu.RUnlock()

	return c.expr
}

// SetExpression replaces the record's expression. The value does not change
// until the next recompute.
func (c *Calc) SetExpression(expr string) error {
	expr = strings.TrimSpace(expr)

	var seq []float64
	switch {
	case expr == ExprRandom:
	case strings.HasPrefix(expr, seqPrefix):
		parts := strings.Split(strings.TrimPrefix(expr, seqPrefix), ",")
		seq = make([]float64, 0, len(parts))
		for _, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return fmt.Errorf("calc %s: bad sequence element %q: %w", c.name, part, err)
			}
			seq = append(seq, v)
		}
	default:
		if _, err := strconv.ParseFloat(expr, 64); err != nil {
			return fmt.Errorf("calc %s: unsupported expression %q", c.name, expr)
		}
	}

	c.exprMu.Lock()
	c.expr = expr
	c.seq = seq
	c.seqIdx = 0
	c.exprMu.Unlock()

	return nil
}

// Process recomputes the record's value from its expression and notifies
// subscribers of the new value.
func (c *Calc) Process(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.net.Closed() {
		return pv.ErrNetworkClosed
	}

	c.exprMu.Lock()
	var value float64
	switch {
	case c.expr == ExprRandom:
		value = rand.Float64()
	case len(c.seq) > 0:
		value = c.seq[c.seqIdx]
		if c.seqIdx < len(c.seq)-1 {
			c.seqIdx++
		}
	default:
		// validated numeric literal
		value, _ = strconv.ParseFloat(c.expr, 64)
	}
	c.exprMu.Unlock()

	c.store(value)

	return nil
}

// exprField exposes the expression as the "<name>.CALC" text field.
func (c *Calc) exprField() pv.TextPV {
	return &calcExpr{calc: c}
}

// procField exposes the recompute trigger as the "<name>.PROC" scalar.
// Writing any nonzero value triggers one recompute.
func (c *Calc) procField() *Scalar {
	proc := newScalar(c.net, c.name+".PROC", 0)
	proc.putHook = func(ctx context.Context, value float64) error {
		if value == 0 {
			return nil
		}

		return c.Process(ctx)
	}

	return proc
}

type calcExpr struct {
	calc *Calc
}

var _ pv.TextPV = (*calcExpr)(nil)

func (e *calcExpr) Name() string {
	return e.calc.name + ".CALC"
}

func (e *calcExpr) GetText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return e.calc.Expression(), nil
}

func (e *calcExpr) PutText(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.calc.net.Closed() {
		return pv.ErrNetworkClosed
	}

	return e.calc.SetExpression(value)
}
