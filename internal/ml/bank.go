package ml

import (
	"colsense/internal/taxonomy"
)

// BankMember is one trained member plus its validation record. Weight is
// the member's validation accuracy and drives the soft vote; LabelF1
// breaks ties between labels.
type BankMember struct {
	Model   Member
	Weight  float64
	LabelF1 map[string]float64
}

// Bank is the set of trained ensemble members bound to one feature
// contract version and one vocabulary. It is read-only after
// construction: loading a new model means building a new bank, never
// mutating a shared one.
type Bank struct {
	featureVersion int
	vocab          taxonomy.Vocabulary
	members        []BankMember
}

// NewBank assembles a bank. The member slice is copied so later caller
// mutations cannot reach a bank already in use.
func NewBank(featureVersion int, vocab taxonomy.Vocabulary, members []BankMember) *Bank {
	return &Bank{
		featureVersion: featureVersion,
		vocab:          vocab,
		members:        append([]BankMember(nil), members...),
	}
}

// EmptyBank returns a bank with no members bound to the given vocabulary.
// The ensemble degrades to rule-only prediction over it.
func EmptyBank(featureVersion int, vocab taxonomy.Vocabulary) *Bank {
	return NewBank(featureVersion, vocab, nil)
}

func (b *Bank) FeatureVersion() int { return b.featureVersion }

func (b *Bank) Vocab() taxonomy.Vocabulary { return b.vocab }

// Members returns the trained members. Callers must treat the result as
// read-only.
func (b *Bank) Members() []BankMember { return b.members }

func (b *Bank) Empty() bool { return b == nil || len(b.members) == 0 }
