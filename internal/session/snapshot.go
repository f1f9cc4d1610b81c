// Snapshot persistence for Session, backed by modernc.org/sqlite, grounded
// on internal/storage/sqlite.go and internal/storage/sqlite_schema.go's
// schema-versioned, prepared-statement style.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/parser"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS facts (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	operator       TEXT NOT NULL,
	args           TEXT NOT NULL,
	derived        INTEGER NOT NULL DEFAULT 0,
	inner_operator TEXT NOT NULL DEFAULT '',
	inner_args     TEXT NOT NULL DEFAULT '[]',
	proof          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rules (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	name   TEXT NOT NULL,
	source TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relations (
	kind TEXT NOT NULL,
	op   TEXT NOT NULL,
	op2  TEXT NOT NULL DEFAULT ''
);
`

// SaveSnapshot writes the session's entire KB (facts, rules, semantic
// declarations) to a fresh sqlite database at path, overwriting any
// existing tables. Vectors are not persisted; they are rebuilt from the
// vector runtime on load.
func (s *Session) SaveSnapshot(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening snapshot db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(snapshotSchema); err != nil {
		return fmt.Errorf("creating snapshot schema: %w", err)
	}
	for _, table := range []string{"facts", "rules", "relations"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, f := range s.store.AllFacts() {
		argsJSON, _ := json.Marshal(f.Metadata.Args)
		innerArgsJSON, _ := json.Marshal(f.Metadata.InnerArgs)
		if _, err := tx.Exec(
			`INSERT INTO facts (operator, args, derived, inner_operator, inner_args, proof) VALUES (?, ?, ?, ?, ?, ?)`,
			f.Metadata.Operator, string(argsJSON), boolToInt(f.Metadata.Derived),
			f.Metadata.InnerOperator, string(innerArgsJSON), f.Metadata.Proof,
		); err != nil {
			return fmt.Errorf("persisting fact %q: %w", f.OperatorText(), err)
		}
	}

	for _, r := range s.rules {
		if _, err := tx.Exec(`INSERT INTO rules (name, source) VALUES (?, ?)`, r.Name, r.Source); err != nil {
			return fmt.Errorf("persisting rule %q: %w", r.Name, err)
		}
	}

	transitive, symmetric, reflexive, inheritable, inverse := s.semantic.Declarations()
	insertRelation := func(kind, op, op2 string) error {
		_, err := tx.Exec(`INSERT INTO relations (kind, op, op2) VALUES (?, ?, ?)`, kind, op, op2)
		return err
	}
	for _, op := range transitive {
		if err := insertRelation("transitive", op, ""); err != nil {
			return err
		}
	}
	for _, op := range symmetric {
		if err := insertRelation("symmetric", op, ""); err != nil {
			return err
		}
	}
	for _, op := range reflexive {
		if err := insertRelation("reflexive", op, ""); err != nil {
			return err
		}
	}
	for _, op := range inheritable {
		if err := insertRelation("inheritable", op, ""); err != nil {
			return err
		}
	}
	for op, inv := range inverse {
		if err := insertRelation("inverse", op, inv); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadSnapshot replaces the session's KB/rules/semantic index wholesale
// with the contents of the sqlite database at path.
func (s *Session) LoadSnapshot(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening snapshot db: %w", err)
	}
	defer db.Close()

	factRows, err := db.Query(`SELECT operator, args, derived, inner_operator, inner_args, proof FROM facts ORDER BY id`)
	if err != nil {
		return fmt.Errorf("reading facts: %w", err)
	}
	var metas []kb.FactMetadata
	for factRows.Next() {
		var meta kb.FactMetadata
		var argsJSON, innerArgsJSON string
		var derived int
		if err := factRows.Scan(&meta.Operator, &argsJSON, &derived, &meta.InnerOperator, &innerArgsJSON, &meta.Proof); err != nil {
			factRows.Close()
			return fmt.Errorf("scanning fact row: %w", err)
		}
		_ = json.Unmarshal([]byte(argsJSON), &meta.Args)
		_ = json.Unmarshal([]byte(innerArgsJSON), &meta.InnerArgs)
		meta.Derived = derived != 0
		metas = append(metas, meta)
	}
	factRows.Close()

	ruleRows, err := db.Query(`SELECT source FROM rules ORDER BY id`)
	if err != nil {
		return fmt.Errorf("reading rules: %w", err)
	}
	var ruleSources []string
	for ruleRows.Next() {
		var src string
		if err := ruleRows.Scan(&src); err != nil {
			ruleRows.Close()
			return fmt.Errorf("scanning rule row: %w", err)
		}
		ruleSources = append(ruleSources, src)
	}
	ruleRows.Close()

	relRows, err := db.Query(`SELECT kind, op, op2 FROM relations`)
	if err != nil {
		return fmt.Errorf("reading relations: %w", err)
	}
	type relation struct{ kind, op, op2 string }
	var relations []relation
	for relRows.Next() {
		var r relation
		if err := relRows.Scan(&r.kind, &r.op, &r.op2); err != nil {
			relRows.Close()
			return fmt.Errorf("scanning relation row: %w", err)
		}
		relations = append(relations, r)
	}
	relRows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store = kb.NewComponentKB()
	s.store.SetCanonicalizationEnabled(s.CanonicalizationEnabled)
	s.semantic = kb.NewSemanticIndex()
	s.rules = nil

	for _, meta := range metas {
		if s.Vector != nil {
			s.store.AddFactWithVector(meta, s.Vector.BuildStatementVector(factNode(meta)))
		} else {
			s.store.AddFact(meta)
		}
	}
	for _, r := range relations {
		switch r.kind {
		case "transitive":
			s.semantic.DeclareTransitive(r.op)
		case "symmetric":
			s.semantic.DeclareSymmetric(r.op)
		case "reflexive":
			s.semantic.DeclareReflexive(r.op)
		case "inheritable":
			s.semantic.DeclareInheritable(r.op)
		case "inverse":
			s.semantic.DeclareInverse(r.op, r.op2)
		}
	}
	for _, src := range ruleSources {
		n, err := parser.ParseOne(src)
		if err != nil {
			return fmt.Errorf("reparsing rule %q: %w", src, err)
		}
		if err := s.addRuleLocked(n); err != nil {
			return fmt.Errorf("reloading rule %q: %w", src, err)
		}
	}
	return nil
}

// factNode rebuilds the ast.Node shape a persisted fact's operator/args
// describe, for vector re-encoding only (ground facts never need variable/
// literal type fidelity back, since ComponentKB already indexes by the flat
// string args).
func factNode(meta kb.FactMetadata) ast.Node {
	args := make([]ast.Node, len(meta.Args))
	for i, a := range meta.Args {
		args[i] = ast.Ident(a)
	}
	return ast.Compound(meta.Operator, args...)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
