package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senpaisaul/multimodal-rag/internal/models"
)

func TestCleanFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```JSON\n{\"a\":1}\n```  \n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanFences(tt.in))
		})
	}
}

func TestParse_VisionFact(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		status ParseStatus
	}{
		{
			name:   "valid chart",
			raw:    `{"image_type":"chart","description":"Revenue by quarter","x_label":"Quarter","y_label":"USD","data_points":[[1,10],[2,20]],"trend":"rising","confidence":"high"}`,
			status: ParseOK,
		},
		{
			name:   "valid without optional fields",
			raw:    `{"image_type":"diagram","description":"Architecture","confidence":"medium"}`,
			status: ParseOK,
		},
		{
			name:   "fenced",
			raw:    "```json\n{\"image_type\":\"table\",\"description\":\"t\",\"confidence\":\"low\"}\n```",
			status: ParseOK,
		},
		{
			name:   "not json",
			raw:    "The image shows a chart of revenue.",
			status: ParseMalformedJSON,
		},
		{
			name:   "truncated",
			raw:    `{"image_type":"chart","description":`,
			status: ParseMalformedJSON,
		},
		{
			name:   "empty",
			raw:    "   ",
			status: ParseMalformedJSON,
		},
		{
			name:   "unknown image type",
			raw:    `{"image_type":"photo","description":"x","confidence":"high"}`,
			status: ParseSchemaError,
		},
		{
			name:   "missing confidence",
			raw:    `{"image_type":"chart","description":"x"}`,
			status: ParseSchemaError,
		},
		{
			name:   "point with three values",
			raw:    `{"image_type":"chart","description":"x","data_points":[[1,2,3]],"confidence":"high"}`,
			status: ParseSchemaError,
		},
		{
			name:   "blank description",
			raw:    `{"image_type":"chart","description":"   ","confidence":"high"}`,
			status: ParseSchemaError,
		},
		{
			name:   "whitespace description",
			raw:    `{"image_type":"table","description":"\n\t ","confidence":"medium"}`,
			status: ParseSchemaError,
		},
		{
			name:   "string data points",
			raw:    `{"image_type":"chart","description":"x","data_points":[["a","b"]],"confidence":"high"}`,
			status: ParseSchemaError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse[VisionFactPayload](tt.raw)
			assert.Equal(t, tt.status, result.Status)
			if tt.status == ParseOK {
				assert.NoError(t, result.Err)
			} else {
				assert.Error(t, result.Err)
			}
		})
	}
}

func TestVisionFactPayload_ToFactInjectsPage(t *testing.T) {
	result := Parse[VisionFactPayload](`{"page":99,"image_type":"chart","description":" Sales ","data_points":[[1,10],[2,20]],"confidence":"high"}`)
	require.True(t, result.OK())

	fact := result.Value.ToFact(3)
	assert.Equal(t, 3, fact.Page)
	assert.Equal(t, "Sales", fact.Description)
	assert.Equal(t, models.ImageTypeChart, fact.ImageType)
	assert.Equal(t, []models.DataPoint{{1, 10}, {2, 20}}, fact.DataPoints)
}

func TestGraphSpecPayload_ToSpec(t *testing.T) {
	result := Parse[GraphSpecPayload](`{"graph_type":"pie","title":"T","data_points":[[2020,1.5]]}`)
	require.True(t, result.OK())

	spec := result.Value.ToSpec()
	assert.Equal(t, models.GraphTypeBar, spec.GraphType)
	assert.Equal(t, models.ChartKindBar, spec.Kind())
	assert.Equal(t, "", spec.XLabel)
	assert.Len(t, spec.DataPoints, 1)

	line := Parse[GraphSpecPayload](`{"graph_type":"LINE","data_points":[[1,1]]}`).Value.ToSpec()
	assert.Equal(t, models.ChartKindLine, line.Kind())
}

func TestGetSchemaMap(t *testing.T) {
	for _, name := range []string{VisionFactSchema, GraphSpecSchema} {
		m, err := GetSchemaMap(name)
		require.NoError(t, err, name)
		assert.Equal(t, "object", m["type"])
		assert.Contains(t, m, "properties")
	}

	_, err := GetSchemaMap("missing.json")
	assert.Error(t, err)
}
