package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPeriodCanTransition(t *testing.T) {
	cases := []struct {
		from PeriodStatus
		to   PeriodStatus
		ok   bool
	}{
		{PeriodStatusDraft, PeriodStatusOpen, true},
		{PeriodStatusDraft, PeriodStatusPendingClose, false},
		{PeriodStatusDraft, PeriodStatusClosed, false},
		{PeriodStatusOpen, PeriodStatusPendingClose, true},
		{PeriodStatusOpen, PeriodStatusClosed, false},
		{PeriodStatusOpen, PeriodStatusDraft, false},
		{PeriodStatusPendingClose, PeriodStatusClosed, true},
		{PeriodStatusPendingClose, PeriodStatusOpen, true}, // rejection reopens
		{PeriodStatusPendingClose, PeriodStatusDraft, false},
		{PeriodStatusClosed, PeriodStatusOpen, false},
		{PeriodStatusClosed, PeriodStatusPendingClose, false},
	}
	for _, tc := range cases {
		p := &Period{Status: tc.from}
		if got := p.CanTransition(tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestPeriodIsPostable(t *testing.T) {
	for _, status := range AllPeriodStatus {
		p := &Period{Status: status}
		want := status == PeriodStatusOpen
		if p.IsPostable() != want {
			t.Errorf("IsPostable(%s) = %v, want %v", status, p.IsPostable(), want)
		}
	}
}

func TestMovementValueUsesAbsoluteQty(t *testing.T) {
	m := &Movement{
		Qty:      decimal.RequireFromString("-5"),
		UnitCost: decimal.RequireFromString("3.00"),
	}
	if !m.Value().Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("value = %s, want 15.00", m.Value())
	}
}

func TestLocationPeriodStateSnapshotRoundTrip(t *testing.T) {
	snap := &Snapshot{
		TotalValue: decimal.RequireFromString("150.50"),
		Lines: []SnapshotLine{
			{ItemId: 1, Qty: decimal.RequireFromString("10"), Wac: decimal.RequireFromString("15.05"), Value: decimal.RequireFromString("150.50")},
		},
		Reconciliation: &ReconciliationView{
			OpeningValue: decimal.RequireFromString("100"),
			Consumption:  decimal.RequireFromString("49.50"),
		},
	}

	state := &LocationPeriodState{}
	if err := state.SetClosingSnapshot(snap); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := state.GetClosingSnapshot()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || len(got.Lines) != 1 {
		t.Fatalf("snapshot = %+v", got)
	}
	if !got.TotalValue.Equal(snap.TotalValue) {
		t.Fatalf("total = %s, want %s", got.TotalValue, snap.TotalValue)
	}
	if got.Reconciliation == nil || !got.Reconciliation.Consumption.Equal(decimal.RequireFromString("49.50")) {
		t.Fatalf("reconciliation view not preserved: %+v", got.Reconciliation)
	}

	empty := &LocationPeriodState{}
	if snap, err := empty.GetOpeningSnapshot(); err != nil || snap != nil {
		t.Fatalf("empty snapshot: got %+v, %v", snap, err)
	}
}
