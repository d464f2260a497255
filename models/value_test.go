package models_test

import (
	"encoding/json"
	"testing"

	"procurement/models"

	"github.com/stretchr/testify/require"
)

func TestMixedDecodesClosedVariant(t *testing.T) {
	var m models.Mixed
	err := json.Unmarshal([]byte(`{"ram":"16GB","cores":8,"ssd":true,"screen":{"size":15.6,"touch":false}}`), &m)
	require.NoError(t, err)

	ram, ok := m["ram"].AsString()
	require.True(t, ok)
	require.Equal(t, "16GB", ram)

	cores, ok := m["cores"].AsNumber()
	require.True(t, ok)
	require.Equal(t, 8.0, cores)

	ssd, ok := m["ssd"].AsBool()
	require.True(t, ok)
	require.True(t, ssd)

	screen, ok := m["screen"].AsMap()
	require.True(t, ok)
	size, _ := screen["size"].AsNumber()
	require.Equal(t, 15.6, size)
	require.Equal(t, models.KindBool, screen["touch"].Kind())
}

func TestMixedRejectsArraysAndNull(t *testing.T) {
	var m models.Mixed
	require.Error(t, json.Unmarshal([]byte(`{"colors":["red","blue"]}`), &m))
	require.Error(t, json.Unmarshal([]byte(`{"colors":null}`), &m))
}

func TestMixedEncodes(t *testing.T) {
	m := models.Mixed{
		"ram":    models.String("16GB"),
		"nested": models.Map(models.Mixed{"ok": models.Bool(true)}),
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"ram":"16GB","nested":{"ok":true}}`, string(b))
}

func TestFieldDistinguishesNullFromAbsent(t *testing.T) {
	var p models.RFPPatch
	require.NoError(t, json.Unmarshal([]byte(`{"deadline":null}`), &p))
	require.True(t, p.Deadline.Set)
	require.True(t, p.Deadline.Null)
	require.False(t, p.Budget.Set)

	require.NoError(t, json.Unmarshal([]byte(`{"budget":1500}`), &p))
	require.True(t, p.Budget.Set)
	require.Equal(t, 1500.0, p.Budget.Value)
}

func TestExtractedDataInputDefaults(t *testing.T) {
	price := 1200.0
	got := models.ExtractedDataInput{TotalPrice: &price}.Resolve()
	require.Equal(t, 1200.0, got.TotalPrice)
	require.Equal(t, models.DefaultDeliveryDays, got.DeliveryDays)
	require.Equal(t, models.DefaultWarranty, got.Warranty)
	require.Equal(t, models.DefaultPaymentTerms, got.PaymentTerms)
	require.NotNil(t, got.Specifications)
}

func TestNewPagination(t *testing.T) {
	p := models.NewPagination(2, 10, 21)
	require.Equal(t, 3, p.Pages)
	require.Equal(t, 10, p.Offset())
	require.Equal(t, 0, models.NewPagination(1, 10, 0).Pages)
}
