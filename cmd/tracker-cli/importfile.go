package main

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"expensetracker/internal/core"
)

// importFile is the YAML layout accepted by the import command:
//
//	transactions:
//	  - title: Lunch
//	    amount: 12.50
//	    type: expense
//	    category: Food
//	    date: 2024-01-10
type importFile struct {
	Transactions []importRecord `yaml:"transactions"`
}

type importRecord struct {
	Title    string `yaml:"title"`
	Amount   string `yaml:"amount"`
	Type     string `yaml:"type"`
	Category string `yaml:"category"`
	Date     string `yaml:"date"`
}

var errEmptyImport = errors.New("import file has no transactions")

// parseImportFile decodes and checks every record; the first bad record
// fails the whole file.
func parseImportFile(r io.Reader) ([]core.Transaction, error) {
	var f importFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyImport
		}
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if len(f.Transactions) == 0 {
		return nil, errEmptyImport
	}

	out := make([]core.Transaction, 0, len(f.Transactions))
	for i, rec := range f.Transactions {
		t, err := rec.toTransaction()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (rec importRecord) toTransaction() (core.Transaction, error) {
	typ, err := core.ParseTransactionType(rec.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(rec.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", rec.Amount, err)
	}
	if _, err := core.ParseDate(rec.Date); err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", rec.Date, err)
	}
	return core.Transaction{
		Title:    rec.Title,
		Amount:   amount,
		Type:     typ,
		Category: rec.Category,
		Date:     rec.Date,
	}, nil
}
