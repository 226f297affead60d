package expr

import (
	"fmt"
	"math"
)

type node interface {
	eval(val float64) float64
}

type numNode float64

func (n numNode) eval(float64) float64 { return float64(n) }

type varNode struct{}

func (varNode) eval(val float64) float64 { return val }

type unaryNode struct {
	op string
	x  node
}

func (n unaryNode) eval(val float64) float64 {
	x := n.x.eval(val)
	if n.op == "!" {
		return truth(x == 0 || math.IsNaN(x))
	}
	return -x
}

type binaryNode struct {
	op   string
	l, r node
}

func (n binaryNode) eval(val float64) float64 {
	l := n.l.eval(val)
	switch n.op {
	case "&&":
		if l == 0 || math.IsNaN(l) {
			return 0
		}
		r := n.r.eval(val)
		return truth(r != 0 && !math.IsNaN(r))
	case "||":
		if l != 0 && !math.IsNaN(l) {
			return 1
		}
		r := n.r.eval(val)
		return truth(r != 0 && !math.IsNaN(r))
	}
	r := n.r.eval(val)
	switch n.op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "/":
		return l / r
	case "%":
		return math.Mod(l, r)
	case "<":
		return truth(l < r)
	case "<=":
		return truth(l <= r)
	case ">":
		return truth(l > r)
	case ">=":
		return truth(l >= r)
	case "==":
		return truth(l == r)
	case "!=":
		return truth(l != r)
	}
	return math.NaN()
}

type callNode struct {
	fn   function
	args []node
}

func (n callNode) eval(val float64) float64 {
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		args[i] = a.eval(val)
	}
	return n.fn.fn(args)
}

type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return ErrTooDeep
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseOr() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("||"); !ok {
			return l, nil
		}
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: "||", l: l, r: r}
	}
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			return l, nil
		}
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: "&&", l: l, r: r}
	}
}

func (p *parser) parseNot() (node, error) {
	if _, ok := p.acceptOp("!"); ok {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "!", x: x}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, error) {
	l, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	op, ok := p.acceptOp("<=", ">=", "==", "!=", "<", ">")
	if !ok {
		return l, nil
	}
	r, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	return binaryNode{op: op, l: l, r: r}, nil
}

func (p *parser) parseSum() (node, error) {
	l, err := p.parseProd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return l, nil
		}
		r, err := p.parseProd()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseProd() (node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "%")
		if !ok {
			return l, nil
		}
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseUnary() (node, error) {
	if _, ok := p.acceptOp("-"); ok {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "-", x: x}, nil
	}
	if _, ok := p.acceptOp("+"); ok {
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numNode(t.num), nil
	case tokLParen:
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, fmt.Errorf("expected ) at %d", c.pos)
		}
		return x, nil
	case tokIdent:
		if t.text == "val" {
			return varNode{}, nil
		}
		if v, ok := constants[t.text]; ok {
			return numNode(v), nil
		}
		fn, ok := functions[t.text]
		if !ok {
			return nil, fmt.Errorf("unknown identifier %q at %d", t.text, t.pos)
		}
		return p.parseCall(t, fn)
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
}

func (p *parser) parseCall(name token, fn function) (node, error) {
	if t := p.next(); t.kind != tokLParen {
		return nil, fmt.Errorf("expected ( after %s at %d", name.text, t.pos)
	}
	var args []node
	if p.peek().kind != tokRParen {
		for {
			a, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if t := p.next(); t.kind != tokRParen {
		return nil, fmt.Errorf("expected ) at %d", t.pos)
	}
	if fn.arity >= 0 && len(args) != fn.arity {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", name.text, fn.arity, len(args))
	}
	if fn.arity < 0 && len(args) == 0 {
		return nil, fmt.Errorf("%s takes at least one argument", name.text)
	}
	return callNode{fn: fn, args: args}, nil
}
