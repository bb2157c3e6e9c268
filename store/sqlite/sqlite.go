/*
Package sqlite provides a SQLite-backed implementation of the repository interfaces.

PURPOSE:
  Implements the persistence interfaces (portfolio.ProductRepository,
  portfolio.CaseRepository) using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  portfolio.ProductRepository: Charge definitions, segment sets, provision steps
  portfolio.CaseRepository:    Case records and account assignments

KEY TABLES:
  charge_definitions:   One row per charge attached to a product
  balance_segments:     Segment boundaries, keyed by product and set
  loss_provision_steps: Provisioning percentages keyed by days late
  cases:                Loan cases with their negotiated terms
  case_accounts:        Designator-to-account assignments per case

DECIMAL STORAGE:
  Rates, amounts and bounds are stored as TEXT and parsed back through
  shopspring/decimal. Floating point never touches a monetary value.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/lending.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := portfolio.NewPaymentEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - portfolio/repository.go: Interface definitions
  - portfolio/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/lending-engine/portfolio"
)

// Compile-time interface checks.
var (
	_ portfolio.ProductRepository = (*Store)(nil)
	_ portfolio.CaseRepository    = (*Store)(nil)
)

// Store implements the repository interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer anyway, and a pooled
	// ":memory:" database would otherwise be a new empty database per
	// connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Products
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Charge definitions (one row per charge attached to a product)
	CREATE TABLE IF NOT EXISTS charge_definitions (
		product_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		name TEXT NOT NULL,
		charge_action TEXT NOT NULL,
		accrue_action TEXT,
		amount TEXT NOT NULL,
		method TEXT NOT NULL,
		proportional_to TEXT,
		from_designator TEXT NOT NULL,
		accrual_designator TEXT,
		to_designator TEXT NOT NULL,
		for_cycle_size_unit TEXT,
		segment_set TEXT,
		from_segment TEXT,
		to_segment TEXT,
		read_only BOOLEAN NOT NULL DEFAULT FALSE,
		charge_on_top BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (product_id, identifier)
	);

	CREATE INDEX IF NOT EXISTS idx_charges_product_action
		ON charge_definitions(product_id, charge_action);

	-- Balance segment boundaries
	CREATE TABLE IF NOT EXISTS balance_segments (
		product_id TEXT NOT NULL,
		set_id TEXT NOT NULL,
		segment_id TEXT NOT NULL,
		lower_bound TEXT NOT NULL,
		PRIMARY KEY (product_id, set_id, segment_id)
	);

	CREATE INDEX IF NOT EXISTS idx_segments_product_set
		ON balance_segments(product_id, set_id);

	-- Loss provisioning steps
	CREATE TABLE IF NOT EXISTS loss_provision_steps (
		product_id TEXT NOT NULL,
		days_late INTEGER NOT NULL,
		percentage TEXT NOT NULL,
		PRIMARY KEY (product_id, days_late)
	);

	-- Cases
	CREATE TABLE IF NOT EXISTS cases (
		product_id TEXT NOT NULL,
		case_id TEXT NOT NULL,
		current_state TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		balance_range_maximum TEXT NOT NULL,
		term_unit TEXT NOT NULL,
		term_maximum INTEGER NOT NULL,
		cycle_unit TEXT NOT NULL,
		cycle_period INTEGER NOT NULL,
		alignment_day INTEGER,
		alignment_week INTEGER,
		alignment_month INTEGER,
		minor_currency_digits INTEGER NOT NULL DEFAULT 2,
		start_of_term TEXT,
		end_of_term TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (product_id, case_id)
	);

	CREATE INDEX IF NOT EXISTS idx_cases_customer
		ON cases(customer_id);
	CREATE INDEX IF NOT EXISTS idx_cases_state
		ON cases(current_state);

	-- Designator-to-account assignments per case
	CREATE TABLE IF NOT EXISTS case_accounts (
		product_id TEXT NOT NULL,
		case_id TEXT NOT NULL,
		designator TEXT NOT NULL,
		account_id TEXT NOT NULL,
		PRIMARY KEY (product_id, case_id, designator)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PRODUCT WRITES
// =============================================================================

// SaveProduct saves a product record.
func (s *Store) SaveProduct(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query, id, name, now, now)
	return err
}

// ListProducts returns the identifiers and names of all products.
func (s *Store) ListProducts(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		products[id] = name
	}
	return products, rows.Err()
}

// PutChargeDefinitions replaces all charge definitions of a product
// atomically. Each definition is validated before anything is written.
func (s *Store) PutChargeDefinitions(ctx context.Context, productID string, defs []portfolio.ChargeDefinition) error {
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM charge_definitions WHERE product_id = ?", productID); err != nil {
		return err
	}

	query := `
		INSERT INTO charge_definitions
		(product_id, identifier, name, charge_action, accrue_action, amount, method,
		 proportional_to, from_designator, accrual_designator, to_designator,
		 for_cycle_size_unit, segment_set, from_segment, to_segment, read_only, charge_on_top)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, def := range defs {
		var accrueAction, proportionalTo, accrualDesignator, cycleUnit sql.NullString
		var segmentSet, fromSegment, toSegment sql.NullString
		if def.AccrueAction != nil {
			accrueAction = nullString(string(*def.AccrueAction))
		}
		if def.ProportionalTo != nil {
			proportionalTo = nullString(def.ProportionalTo.String())
		}
		if def.AccrualAccountDesignator != nil {
			accrualDesignator = nullString(string(*def.AccrualAccountDesignator))
		}
		if def.ForCycleSizeUnit != nil {
			cycleUnit = nullString(string(*def.ForCycleSizeUnit))
		}
		if def.Segments != nil {
			segmentSet = nullString(def.Segments.SegmentSetIdentifier)
			fromSegment = nullString(def.Segments.FromSegment)
			toSegment = nullString(def.Segments.ToSegment)
		}

		if _, err := tx.ExecContext(ctx, query,
			productID, def.Identifier, def.Name,
			string(def.ChargeAction), accrueAction,
			def.Amount.String(), string(def.Method), proportionalTo,
			string(def.FromAccountDesignator), accrualDesignator, string(def.ToAccountDesignator),
			cycleUnit, segmentSet, fromSegment, toSegment,
			def.ReadOnly, def.ChargeOnTop,
		); err != nil {
			return fmt.Errorf("failed to insert charge %s: %w", def.Identifier, err)
		}
	}

	return tx.Commit()
}

// PutBalanceSegmentSet replaces one segment set of a product atomically.
func (s *Store) PutBalanceSegmentSet(ctx context.Context, set portfolio.BalanceSegmentSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM balance_segments WHERE product_id = ? AND set_id = ?",
		set.ProductIdentifier, set.Identifier,
	); err != nil {
		return err
	}

	for _, seg := range set.Segments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO balance_segments (product_id, set_id, segment_id, lower_bound) VALUES (?, ?, ?, ?)",
			set.ProductIdentifier, set.Identifier, seg.Identifier, seg.LowerBound.String(),
		); err != nil {
			return fmt.Errorf("failed to insert segment %s: %w", seg.Identifier, err)
		}
	}

	return tx.Commit()
}

// PutLossProvisionSteps replaces a product's provisioning table atomically.
func (s *Store) PutLossProvisionSteps(ctx context.Context, productID string, steps []portfolio.LossProvisionStep) error {
	if err := portfolio.ValidateLossProvisionSteps(productID, steps); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM loss_provision_steps WHERE product_id = ?", productID); err != nil {
		return err
	}

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO loss_provision_steps (product_id, days_late, percentage) VALUES (?, ?, ?)",
			productID, step.DaysLate, step.Percentage.String(),
		); err != nil {
			return fmt.Errorf("failed to insert provision step %d: %w", step.DaysLate, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// PRODUCT REPOSITORY (portfolio.ProductRepository interface)
// =============================================================================

// ChargeDefinitions returns all charge definitions attached to a product.
func (s *Store) ChargeDefinitions(ctx context.Context, productID string) ([]portfolio.ChargeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT identifier, name, charge_action, accrue_action, amount, method,
		       proportional_to, from_designator, accrual_designator, to_designator,
		       for_cycle_size_unit, segment_set, from_segment, to_segment, read_only, charge_on_top
		FROM charge_definitions
		WHERE product_id = ?
		ORDER BY identifier ASC
	`

	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query charge definitions: %w", err)
	}
	defer rows.Close()

	var defs []portfolio.ChargeDefinition
	for rows.Next() {
		def, err := scanChargeDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func scanChargeDefinition(rows *sql.Rows) (portfolio.ChargeDefinition, error) {
	var (
		def               portfolio.ChargeDefinition
		chargeAction      string
		accrueAction      sql.NullString
		amount            string
		method            string
		proportionalTo    sql.NullString
		fromDesignator    string
		accrualDesignator sql.NullString
		toDesignator      string
		cycleUnit         sql.NullString
		segmentSet        sql.NullString
		fromSegment       sql.NullString
		toSegment         sql.NullString
	)

	err := rows.Scan(
		&def.Identifier, &def.Name, &chargeAction, &accrueAction, &amount, &method,
		&proportionalTo, &fromDesignator, &accrualDesignator, &toDesignator,
		&cycleUnit, &segmentSet, &fromSegment, &toSegment, &def.ReadOnly, &def.ChargeOnTop,
	)
	if err != nil {
		return def, fmt.Errorf("failed to scan charge definition: %w", err)
	}

	def.ChargeAction = portfolio.Action(chargeAction)
	def.Method = portfolio.ChargeMethod(method)
	def.FromAccountDesignator = portfolio.AccountDesignator(fromDesignator)
	def.ToAccountDesignator = portfolio.AccountDesignator(toDesignator)

	def.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return def, fmt.Errorf("charge %s: corrupt amount %q: %w", def.Identifier, amount, err)
	}

	if accrueAction.Valid {
		a := portfolio.Action(accrueAction.String)
		def.AccrueAction = &a
	}
	if proportionalTo.Valid {
		prop, err := portfolio.ParseProportionalDesignator(proportionalTo.String)
		if err != nil {
			return def, fmt.Errorf("charge %s: %w", def.Identifier, err)
		}
		def.ProportionalTo = &prop
	}
	if accrualDesignator.Valid {
		d := portfolio.AccountDesignator(accrualDesignator.String)
		def.AccrualAccountDesignator = &d
	}
	if cycleUnit.Valid {
		u := portfolio.ChronoUnit(cycleUnit.String)
		def.ForCycleSizeUnit = &u
	}
	if segmentSet.Valid {
		def.Segments = &portfolio.SegmentRange{
			SegmentSetIdentifier: segmentSet.String,
			FromSegment:          fromSegment.String,
			ToSegment:            toSegment.String,
		}
	}

	return def, nil
}

// BalanceSegmentSet returns a product's segment set by identifier.
func (s *Store) BalanceSegmentSet(ctx context.Context, productID, setID string) (portfolio.BalanceSegmentSet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT segment_id, lower_bound
		FROM balance_segments
		WHERE product_id = ? AND set_id = ?
		ORDER BY CAST(lower_bound AS REAL) ASC
	`

	rows, err := s.db.QueryContext(ctx, query, productID, setID)
	if err != nil {
		return portfolio.BalanceSegmentSet{}, false, err
	}
	defer rows.Close()

	set := portfolio.BalanceSegmentSet{
		Identifier:        setID,
		ProductIdentifier: productID,
	}
	for rows.Next() {
		var segID, bound string
		if err := rows.Scan(&segID, &bound); err != nil {
			return portfolio.BalanceSegmentSet{}, false, err
		}
		lower, err := decimal.NewFromString(bound)
		if err != nil {
			return portfolio.BalanceSegmentSet{}, false, fmt.Errorf("segment %s: corrupt bound %q: %w", segID, bound, err)
		}
		set.Segments = append(set.Segments, portfolio.BalanceSegment{
			Identifier: segID,
			LowerBound: lower,
		})
	}
	if err := rows.Err(); err != nil {
		return portfolio.BalanceSegmentSet{}, false, err
	}
	if len(set.Segments) == 0 {
		return portfolio.BalanceSegmentSet{}, false, nil
	}
	return set, true, nil
}

// LossProvisionSteps returns the product's loss provisioning table.
func (s *Store) LossProvisionSteps(ctx context.Context, productID string) ([]portfolio.LossProvisionStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT days_late, percentage FROM loss_provision_steps WHERE product_id = ? ORDER BY days_late ASC",
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []portfolio.LossProvisionStep
	for rows.Next() {
		var step portfolio.LossProvisionStep
		var pct string
		if err := rows.Scan(&step.DaysLate, &pct); err != nil {
			return nil, err
		}
		step.Percentage, err = decimal.NewFromString(pct)
		if err != nil {
			return nil, fmt.Errorf("provision step %d: corrupt percentage %q: %w", step.DaysLate, pct, err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// =============================================================================
// CASE WRITES
// =============================================================================

// PutCase saves a case and its account assignments atomically. The
// payment cycle is validated at write time so no stored case carries an
// alignment the date derivation cannot satisfy.
func (s *Store) PutCase(ctx context.Context, c portfolio.Case) error {
	if err := c.Parameters.PaymentCycle.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO cases
		(product_id, case_id, current_state, customer_id, interest_rate, balance_range_maximum,
		 term_unit, term_maximum, cycle_unit, cycle_period,
		 alignment_day, alignment_week, alignment_month, minor_currency_digits,
		 start_of_term, end_of_term, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, case_id) DO UPDATE SET
			current_state = excluded.current_state,
			customer_id = excluded.customer_id,
			interest_rate = excluded.interest_rate,
			balance_range_maximum = excluded.balance_range_maximum,
			term_unit = excluded.term_unit,
			term_maximum = excluded.term_maximum,
			cycle_unit = excluded.cycle_unit,
			cycle_period = excluded.cycle_period,
			alignment_day = excluded.alignment_day,
			alignment_week = excluded.alignment_week,
			alignment_month = excluded.alignment_month,
			minor_currency_digits = excluded.minor_currency_digits,
			start_of_term = excluded.start_of_term,
			end_of_term = excluded.end_of_term,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, query,
		c.ProductIdentifier, c.Identifier, string(c.CurrentState),
		c.Parameters.CustomerIdentifier,
		c.InterestRate.String(),
		c.Parameters.BalanceRangeMaximum.String(),
		string(c.Parameters.TermRange.TemporalUnit), c.Parameters.TermRange.Maximum,
		string(c.Parameters.PaymentCycle.TemporalUnit), c.Parameters.PaymentCycle.Period,
		nullInt(c.Parameters.PaymentCycle.AlignmentDay),
		nullInt(c.Parameters.PaymentCycle.AlignmentWeek),
		nullInt(c.Parameters.PaymentCycle.AlignmentMonth),
		c.Parameters.MinorCurrencyUnitDigits,
		nullTime(c.StartOfTerm), nullTime(c.EndOfTerm),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save case: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM case_accounts WHERE product_id = ? AND case_id = ?",
		c.ProductIdentifier, c.Identifier,
	); err != nil {
		return err
	}

	for designator, account := range c.AccountAssignments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO case_accounts (product_id, case_id, designator, account_id) VALUES (?, ?, ?, ?)",
			c.ProductIdentifier, c.Identifier, string(designator), account,
		); err != nil {
			return fmt.Errorf("failed to save assignment %s: %w", designator, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// CASE REPOSITORY (portfolio.CaseRepository interface)
// =============================================================================

// Case returns a case by product and case identifier.
func (s *Store) Case(ctx context.Context, productID, caseID string) (portfolio.Case, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT current_state, customer_id, interest_rate, balance_range_maximum,
		       term_unit, term_maximum, cycle_unit, cycle_period,
		       alignment_day, alignment_week, alignment_month, minor_currency_digits,
		       start_of_term, end_of_term
		FROM cases
		WHERE product_id = ? AND case_id = ?
	`

	var (
		c                  portfolio.Case
		state              string
		rate, maxBalance   string
		termUnit           string
		cycleUnit          string
		alignDay           sql.NullInt64
		alignWeek          sql.NullInt64
		alignMonth         sql.NullInt64
		startTerm, endTerm sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, productID, caseID).Scan(
		&state, &c.Parameters.CustomerIdentifier, &rate, &maxBalance,
		&termUnit, &c.Parameters.TermRange.Maximum,
		&cycleUnit, &c.Parameters.PaymentCycle.Period,
		&alignDay, &alignWeek, &alignMonth, &c.Parameters.MinorCurrencyUnitDigits,
		&startTerm, &endTerm,
	)
	if err == sql.ErrNoRows {
		return portfolio.Case{}, false, nil
	}
	if err != nil {
		return portfolio.Case{}, false, err
	}

	c.Identifier = caseID
	c.ProductIdentifier = productID
	c.CurrentState = portfolio.State(state)
	c.Parameters.TermRange.TemporalUnit = portfolio.ChronoUnit(termUnit)
	c.Parameters.PaymentCycle.TemporalUnit = portfolio.ChronoUnit(cycleUnit)

	c.InterestRate, err = decimal.NewFromString(rate)
	if err != nil {
		return portfolio.Case{}, false, fmt.Errorf("case %s: corrupt interest rate %q: %w", caseID, rate, err)
	}
	c.Parameters.BalanceRangeMaximum, err = decimal.NewFromString(maxBalance)
	if err != nil {
		return portfolio.Case{}, false, fmt.Errorf("case %s: corrupt balance maximum %q: %w", caseID, maxBalance, err)
	}

	if alignDay.Valid {
		v := int(alignDay.Int64)
		c.Parameters.PaymentCycle.AlignmentDay = &v
	}
	if alignWeek.Valid {
		v := int(alignWeek.Int64)
		c.Parameters.PaymentCycle.AlignmentWeek = &v
	}
	if alignMonth.Valid {
		v := int(alignMonth.Int64)
		c.Parameters.PaymentCycle.AlignmentMonth = &v
	}
	if startTerm.Valid {
		t, err := time.Parse(time.RFC3339, startTerm.String)
		if err == nil {
			c.StartOfTerm = &t
		}
	}
	if endTerm.Valid {
		t, err := time.Parse(time.RFC3339, endTerm.String)
		if err == nil {
			c.EndOfTerm = &t
		}
	}

	c.AccountAssignments = make(map[portfolio.AccountDesignator]string)
	rows, err := s.db.QueryContext(ctx,
		"SELECT designator, account_id FROM case_accounts WHERE product_id = ? AND case_id = ?",
		productID, caseID,
	)
	if err != nil {
		return portfolio.Case{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var designator, account string
		if err := rows.Scan(&designator, &account); err != nil {
			return portfolio.Case{}, false, err
		}
		c.AccountAssignments[portfolio.AccountDesignator(designator)] = account
	}
	if err := rows.Err(); err != nil {
		return portfolio.Case{}, false, err
	}

	return c, true, nil
}

// ListCases returns the case identifiers of a product.
func (s *Store) ListCases(ctx context.Context, productID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT case_id FROM cases WHERE product_id = ? ORDER BY case_id", productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"case_accounts", "cases", "loss_provision_steps", "balance_segments", "charge_definitions", "products"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
