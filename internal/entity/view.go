package entity

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/dbobject/internal/queryir"
	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
)

// DefaultViewName returns "<table>_view".
func (t *Table) DefaultViewName() string {
	return t.rt.Table + "_view"
}

// SelectionView defines a view over this table alone.
func (t *Table) SelectionView(items []queryir.SelectItem, orderBy ...queryir.OrderTerm) queryir.Select {
	return queryir.Select{Items: items, From: t.from(), OrderBy: orderBy}
}

// JoinView defines a view joining this table with one other table. The
// filter may be nil.
func (t *Table) JoinView(items []queryir.SelectItem, join queryir.Join, filter queryir.Predicate, orderBy ...queryir.OrderTerm) queryir.Select {
	return queryir.Select{
		Items:   items,
		From:    t.from(),
		Joins:   []queryir.Join{join},
		Filter:  filter,
		OrderBy: orderBy,
	}
}

// MultiJoinView defines a view joining this table with several others.
func (t *Table) MultiJoinView(items []queryir.SelectItem, joins []queryir.Join, orderBy ...queryir.OrderTerm) queryir.Select {
	return queryir.Select{Items: items, From: t.from(), Joins: joins, OrderBy: orderBy}
}

// CreateViewIfAbsent creates the named view unless one already exists.
// Every joined table must be registered.
func (t *Table) CreateViewIfAbsent(ctx context.Context, s *store.Session, name string, def queryir.Select) error {
	const op = "create view"
	if name == "" {
		name = t.DefaultViewName()
	}
	if def.From == nil {
		def.From = t.from()
	}
	for _, j := range def.Joins {
		if _, ok := t.db.Registry().Lookup(j.Table); !ok {
			return t.fail(op, KindConfiguration, errors.Wrapf(ErrUnregisteredTable, "join %q", j.Table))
		}
	}
	stmt := queryir.CreateView{Name: name, Query: def}
	if err := queryir.Validate(stmt).Err(); err != nil {
		return t.fail(op, KindConfiguration, err)
	}

	err := t.run(ctx, s, op, func(sess *store.Session) error {
		_, err := t.exec(ctx, sess, stmt)
		return err
	})
	if err == nil {
		t.log.Debugw("view ready", "view", name)
	}
	return err
}

// DeleteView drops the named view if it exists.
func (t *Table) DeleteView(ctx context.Context, s *store.Session, name string) error {
	const op = "delete view"
	if name == "" {
		name = t.DefaultViewName()
	}
	stmt := queryir.DropView{Name: name}
	if err := queryir.Validate(stmt).Err(); err != nil {
		return t.fail(op, KindPrecondition, err)
	}
	return t.run(ctx, s, op, func(sess *store.Session) error {
		_, err := t.exec(ctx, sess, stmt)
		return err
	})
}

// CreateDeclaredViews creates every view the record type declares.
func (t *Table) CreateDeclaredViews(ctx context.Context, s *store.Session) error {
	for _, vd := range t.rt.Views {
		name, def, err := t.ViewFromDef(vd)
		if err != nil {
			return err
		}
		if err := t.CreateViewIfAbsent(ctx, s, name, def); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDeclaredViews drops every view the record type declares.
func (t *Table) DeleteDeclaredViews(ctx context.Context, s *store.Session) error {
	for _, vd := range t.rt.Views {
		name := vd.Name
		if name == "" {
			name = t.DefaultViewName()
		}
		if err := t.DeleteView(ctx, s, name); err != nil {
			return err
		}
	}
	return nil
}

// ViewFromDef converts a declarative view definition into a view query.
// Column references are checked against the registered record types.
func (t *Table) ViewFromDef(vd schema.ViewDef) (string, queryir.Select, error) {
	const op = "view definition"
	name := vd.Name
	if name == "" {
		name = t.DefaultViewName()
	}
	if len(vd.Select) == 0 {
		return "", queryir.Select{}, t.fail(op, KindConfiguration, errors.Newf("view %q selects nothing", name))
	}

	qualify := len(vd.Joins) > 0
	ref := func(s string) (queryir.Column, error) {
		c, err := t.resolveRef(s, qualify)
		if err != nil {
			return queryir.Column{}, t.fail(op, KindConfiguration, errors.Wrapf(err, "view %q", name))
		}
		return c, nil
	}

	q := queryir.Select{From: t.from()}
	for _, item := range vd.Select {
		c, err := ref(item.Column)
		if err != nil {
			return "", queryir.Select{}, err
		}
		var e queryir.Expr = c
		if item.Round != nil {
			e = queryir.Round{Arg: c, Places: *item.Round}
		}
		q.Items = append(q.Items, queryir.SelectItem{Expr: e, As: item.As})
	}

	for _, jd := range vd.Joins {
		var on []queryir.Predicate
		for _, cond := range jd.On {
			left, err := ref(cond.Left)
			if err != nil {
				return "", queryir.Select{}, err
			}
			right, err := ref(cond.Right)
			if err != nil {
				return "", queryir.Select{}, err
			}
			on = append(on, queryir.Compare{Left: left, Op: queryir.Eq, Right: right})
		}
		q.Joins = append(q.Joins, queryir.Join{Table: jd.Table, On: queryir.All(on...)})
	}

	for _, fd := range vd.Where {
		c, err := ref(fd.Column)
		if err != nil {
			return "", queryir.Select{}, err
		}
		cmpOp := queryir.CompareOp(fd.Op)
		if !cmpOp.Valid() {
			return "", queryir.Select{}, t.fail(op, KindConfiguration,
				errors.Newf("view %q: unknown operator %q", name, fd.Op))
		}
		if fd.Value == nil {
			q = q.Where(queryir.IsNull{Arg: c, Not: cmpOp == queryir.Ne})
			continue
		}
		q = q.Where(queryir.Cmp(c, cmpOp, fd.Value))
	}

	for _, od := range vd.OrderBy {
		c, err := ref(od.Column)
		if err != nil {
			return "", queryir.Select{}, err
		}
		q.OrderBy = append(q.OrderBy, queryir.OrderTerm{Expr: c, Desc: od.Desc})
	}
	return name, q, nil
}

// resolveRef resolves "column" against this table and "table.column"
// against any registered table.
func (t *Table) resolveRef(s string, qualify bool) (queryir.Column, error) {
	table, name := t.rt.Table, s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		table, name = s[:i], s[i+1:]
	}

	rt, ok := t.db.Registry().Lookup(table)
	if !ok {
		return queryir.Column{}, errors.Wrapf(ErrUnregisteredTable, "%q", table)
	}
	meta, err := rt.Introspect()
	if err != nil {
		return queryir.Column{}, err
	}
	if _, ok := meta.Column(name); !ok {
		return queryir.Column{}, errors.Wrapf(schema.ErrUnknownColumn, "%q on %q", name, table)
	}

	c := queryir.Column{Name: name}
	if qualify || table != t.rt.Table {
		c.Table = table
	}
	return c, nil
}
