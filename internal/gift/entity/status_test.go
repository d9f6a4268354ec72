package entity

import (
	"testing"
)

func TestStatusCodesAreStable(t *testing.T) {
	// 数值编码对外持久化，任何改动都是破坏性的
	expected := map[ProductionStatus]int{
		StatusDraft:       0,
		StatusCreated:     1,
		StatusNeedDesign:  2,
		StatusDesigning:   3,
		StatusCheckDesign: 4,
		StatusDesignRedo:  5,
		StatusReadyProd:   6,
		StatusInProd:      7,
		StatusFinished:    8,
		StatusQCDone:      9,
		StatusQCFail:      10,
		StatusProdRework:  11,
		StatusPacking:     12,
		StatusHold:        13,
		StatusCancelled:   14,
	}
	for status, code := range expected {
		if int(status) != code {
			t.Errorf("%s: expected code %d, got %d", status, code, int(status))
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus(6); !ok || s != StatusReadyProd {
		t.Errorf("ParseStatus(6) = %v, %v; want READY_PROD, true", s, ok)
	}
	if _, ok := ParseStatus(99); ok {
		t.Error("ParseStatus(99) should fail")
	}
	if _, ok := ParseStatus(-1); ok {
		t.Error("ParseStatus(-1) should fail")
	}
}

func TestValidateTransitionForwardEdges(t *testing.T) {
	valid := []struct {
		from, to ProductionStatus
	}{
		{StatusDraft, StatusCreated},
		{StatusCreated, StatusNeedDesign},
		{StatusNeedDesign, StatusDesigning},
		{StatusDesigning, StatusCheckDesign},
		{StatusCheckDesign, StatusReadyProd},
		{StatusCheckDesign, StatusDesignRedo},
		{StatusDesignRedo, StatusDesigning},
		{StatusReadyProd, StatusInProd},
		{StatusInProd, StatusFinished},
		{StatusFinished, StatusQCDone},
		{StatusFinished, StatusQCFail},
		{StatusQCDone, StatusPacking},
		{StatusQCFail, StatusProdRework},
		{StatusProdRework, StatusReadyProd},
	}
	for _, tc := range valid {
		if err := ValidateTransition(tc.from, tc.to); err != nil {
			t.Errorf("%s -> %s should be valid: %v", tc.from, tc.to, err)
		}
	}
}

func TestValidateTransitionRejectsUnknownPairs(t *testing.T) {
	// 穷举所有状态对，只有流转表、挂起/取消、挂起恢复三类允许
	allowed := func(from, to ProductionStatus) bool {
		if from == to || from.IsTerminal() {
			return false
		}
		if to == StatusHold || to == StatusCancelled {
			return true
		}
		if from == StatusHold {
			return !to.IsTerminal() && to != StatusHold
		}
		for _, next := range forwardEdges[from] {
			if next == to {
				return true
			}
		}
		return false
	}

	for from := StatusDraft; from <= StatusCancelled; from++ {
		for to := StatusDraft; to <= StatusCancelled; to++ {
			err := ValidateTransition(from, to)
			if allowed(from, to) && err != nil {
				t.Errorf("%s -> %s: unexpected error %v", from, to, err)
			}
			if !allowed(from, to) && err == nil {
				t.Errorf("%s -> %s: expected rejection", from, to)
			}
		}
	}
}

func TestValidateTransitionTerminal(t *testing.T) {
	if err := ValidateTransition(StatusCancelled, StatusCreated); err == nil {
		t.Error("CANCELLED should not transition anywhere")
	}
	if err := ValidateTransition(StatusCancelled, StatusHold); err == nil {
		t.Error("CANCELLED should not be holdable")
	}
	if err := ValidateTransition(StatusHold, StatusCancelled); err != nil {
		t.Errorf("HOLD -> CANCELLED should be allowed: %v", err)
	}
}

func TestValidateTransitionSameStatus(t *testing.T) {
	if err := ValidateTransition(StatusInProd, StatusInProd); err == nil {
		t.Error("same-status transition should be rejected")
	}
}

func TestValidateTransitionInvalidCode(t *testing.T) {
	if err := ValidateTransition(ProductionStatus(77), StatusCreated); err == nil {
		t.Error("unknown source code should be rejected")
	}
	if err := ValidateTransition(StatusCreated, ProductionStatus(77)); err == nil {
		t.Error("unknown target code should be rejected")
	}
}

func TestDeriveOrderStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []ProductionStatus
		want     ProductionStatus
	}{
		{"empty", nil, StatusDraft},
		{"single", []ProductionStatus{StatusInProd}, StatusInProd},
		{"lowest wins", []ProductionStatus{StatusPacking, StatusDesigning, StatusInProd}, StatusDesigning},
		{"redo ranks as designing", []ProductionStatus{StatusDesignRedo, StatusInProd}, StatusDesignRedo},
		{"rework ranks as ready", []ProductionStatus{StatusProdRework, StatusFinished}, StatusProdRework},
		{"qc fail ranks as ready", []ProductionStatus{StatusQCFail, StatusQCDone}, StatusQCFail},
		{"ready beats in-prod", []ProductionStatus{StatusReadyProd, StatusInProd}, StatusReadyProd},
		{"cancelled ignored when mixed", []ProductionStatus{StatusCancelled, StatusPacking}, StatusPacking},
		{"hold ignored when mixed", []ProductionStatus{StatusHold, StatusQCDone}, StatusQCDone},
		{"all cancelled", []ProductionStatus{StatusCancelled, StatusCancelled}, StatusCancelled},
		{"all hold", []ProductionStatus{StatusHold, StatusHold}, StatusHold},
		{"tie on rank takes lower code", []ProductionStatus{StatusProdRework, StatusReadyProd}, StatusReadyProd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveOrderStatus(tc.statuses)
			if got != tc.want {
				t.Errorf("DeriveOrderStatus(%v) = %s, want %s", tc.statuses, got, tc.want)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	if StatusProdRework.String() != "PROD_REWORK" {
		t.Errorf("got %s", StatusProdRework.String())
	}
	if ProductionStatus(42).String() != "UNKNOWN(42)" {
		t.Errorf("got %s", ProductionStatus(42).String())
	}
}
