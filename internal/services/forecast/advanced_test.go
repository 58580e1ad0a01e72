package forecast

import (
	"context"
	"testing"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
)

func TestTreeModelRequiresHistory(t *testing.T) {
	a := NewAdvanced(domsvc.AllCapabilities())
	ctx := context.Background()

	if res := a.ForecastTreeModel(ctx, repeating(10, 2, 5), 14, VariantA); res != nil {
		t.Error("10-day series must not produce a tree forecast")
	}
	// 14 days leaves zero clean rows after the lag drop.
	if res := a.ForecastTreeModel(ctx, repeating(14, 2, 5), 14, VariantA); res != nil {
		t.Error("14-day series has no clean rows, want nil")
	}
	// 21 days leaves exactly the minimum 7 clean rows.
	if res := a.ForecastTreeModel(ctx, repeating(21, 2, 5, 3), 14, VariantA); res == nil {
		t.Error("21-day series should produce a tree forecast")
	}
}

func TestTreeModelDisabledByCapability(t *testing.T) {
	a := NewAdvanced(domsvc.Capabilities{Trees: false})
	if res := a.ForecastTreeModel(context.Background(), repeating(60, 2, 5, 3), 14, VariantA); res != nil {
		t.Error("tree forecast must be nil when the family is off")
	}
}

func TestTreeModelInvariantsAndDeterminism(t *testing.T) {
	a := NewAdvanced(domsvc.AllCapabilities())
	ctx := context.Background()
	series := repeating(45, 1, 4, 2, 9, 3, 6, 5)

	first := a.ForecastTreeModel(ctx, series, 30, VariantB)
	if first == nil {
		t.Fatal("expected a tree forecast")
	}
	checkInvariants(t, *first, 30)

	second := a.ForecastTreeModel(ctx, series, 30, VariantB)
	for i := range first.Predictions {
		if first.Predictions[i] != second.Predictions[i] {
			t.Fatalf("prediction[%d] differs across identical runs", i)
		}
	}
}

func TestAdvancedEnsembleBlendsPrefitMembers(t *testing.T) {
	a := NewAdvanced(domsvc.AllCapabilities())
	f := New(domsvc.AllCapabilities())
	ctx := context.Background()
	series := repeating(45, 1, 4, 2, 9, 3, 6, 5)

	base := f.Forecast(ctx, series, 30, models.ModelEnsemble)
	treeA := a.ForecastTreeModel(ctx, series, 30, VariantA)
	treeB := a.ForecastTreeModel(ctx, series, 30, VariantB)
	if treeA == nil || treeB == nil {
		t.Fatal("expected both tree variants to fit")
	}

	res := a.ForecastAdvancedEnsemble(ctx, series, 30, []models.ForecastResult{base, *treeA, *treeB})
	if res == nil {
		t.Fatal("expected an advanced ensemble")
	}
	checkInvariants(t, *res, 30)
	if res.Model != models.ModelAdvancedEnsemble {
		t.Errorf("model = %q, want %q", res.Model, models.ModelAdvancedEnsemble)
	}
	members, _ := res.Details["members"].([]string)
	if len(members) != 3 {
		t.Errorf("members = %v, want both tree variants plus the base", members)
	}
}

func TestAdvancedEnsembleSkipsMismatchedHorizon(t *testing.T) {
	a := NewAdvanced(domsvc.AllCapabilities())
	short := models.ForecastResult{
		Predictions: []float64{2, 2, 2},
		Model:       models.ModelLinear,
		Accuracy:    70,
	}
	if res := a.ForecastAdvancedEnsemble(context.Background(), repeating(45, 2, 5), 30, []models.ForecastResult{short}); res != nil {
		t.Error("member with the wrong horizon must not form an ensemble")
	}
}

func TestAdvancedEnsembleNilWithoutMembers(t *testing.T) {
	a := NewAdvanced(domsvc.Capabilities{Trees: false})
	if res := a.ForecastAdvancedEnsemble(context.Background(), repeating(45, 2, 5), 30, nil); res != nil {
		t.Error("no member forecasts must yield nil")
	}
}
