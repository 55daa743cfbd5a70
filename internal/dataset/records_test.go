package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const table = `id,task,parameters,downloads,tags,metric,value,dataset,split
bert-base-uncased,text-classification,110M,120000,pytorch;bert,accuracy,0.91,glue,validation
bert-base-uncased,,,,,f1,0.88,glue,
t5-small,translation,60M,lots,,bleu,27.1,wmt14,test
,translation,,,,bleu,1,wmt14,test
roberta-base,text-classification,,,,,,,
`

func TestRecords(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(table), "table")
	require.NoError(t, err)

	recs := Records(rows)
	require.Len(t, recs, 4)

	bert := recs[0]
	assert.Equal(t, "bert-base-uncased", bert["id"])
	assert.Equal(t, "text-classification", bert["task"])
	assert.Equal(t, "110M", bert["parameters"], "parameters stay text for the normalizer")
	assert.Equal(t, 120000.0, bert["downloads"])
	assert.Equal(t, []any{"pytorch", "bert"}, bert["tags"])

	evals, ok := bert["evaluations"].([]any)
	require.True(t, ok)
	require.Len(t, evals, 2)
	first := evals[0].(map[string]any)
	assert.Equal(t, "accuracy", first["metric"])
	assert.Equal(t, 0.91, first["value"])
	assert.Equal(t, "validation", first["split"])
	second := evals[1].(map[string]any)
	assert.NotContains(t, second, "split", "empty cells are absent")

	t5 := recs[1]
	assert.Equal(t, "lots", t5["downloads"], "unparsable numbers are kept for validation")

	assert.NotContains(t, recs[2], "id", "rows without id stay separate")

	roberta := recs[3]
	assert.Equal(t, "roberta-base", roberta["id"])
	assert.NotContains(t, roberta, "evaluations")
}

func TestRecords_ModelIDColumn(t *testing.T) {
	recs := Records([]Row{
		{"model_id": "a", "metric": "accuracy", "value": "0.5", "dataset": "d"},
		{"model_id": "a", "metric": "f1", "value": "0.4", "dataset": "d"},
	})
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0]["id"])
	assert.Len(t, recs[0]["evaluations"], 2)
}
