package admin

import "triage-backend/internal/tickets"

// Kpi is one headline figure on the dashboard.
type Kpi struct {
	Name   string `json:"name" yaml:"name"`
	Value  string `json:"value" yaml:"value"`
	Change string `json:"change" yaml:"change"`
}

// ChartPoint is a named value in a bar or pie chart.
type ChartPoint struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

// HeatmapCell is the ticket volume for one module and priority.
type HeatmapCell struct {
	Category tickets.Module   `json:"category"`
	Priority tickets.Priority `json:"priority"`
	Value    int              `json:"value"`
}

// TimeSeries is a labelled series of values.
type TimeSeries struct {
	Labels []string  `json:"labels" yaml:"labels"`
	Data   []float64 `json:"data" yaml:"data"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	Kpis          []Kpi         `json:"kpis"`
	RootCauses    []ChartPoint  `json:"rootCauses"`
	Heatmap       []HeatmapCell `json:"heatmap"`
	KnowledgeBase int           `json:"knowledgeBaseSize"`
	FeedbackTotal int           `json:"feedbackTotal"`
}

const (
	AnalyticsSuccess          = "success"
	AnalyticsInsufficientData = "insufficient_data"
)

// Analytics is the cluster and sentiment view. Only Status is set when the
// knowledge base is too small.
type Analytics struct {
	Status        string       `json:"status"`
	ClusterData   []ChartPoint `json:"clusterData,omitempty"`
	SentimentData *TimeSeries  `json:"sentimentData,omitempty"`
}

// ColumnReport describes one column of an uploaded dataset.
type ColumnReport struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Missing int    `json:"missing"`
}

// EdaReport summarizes an uploaded knowledge-base file.
type EdaReport struct {
	UploadID   string         `json:"uploadId"`
	FileName   string         `json:"fileName"`
	FileSize   int64          `json:"fileSize"`
	RowCount   int            `json:"rowCount"`
	Columns    []ColumnReport `json:"columns"`
	Imported   int            `json:"imported"`
	StorageKey string         `json:"storageKey,omitempty"`
}

type fixtures struct {
	Kpis       []Kpi        `yaml:"kpis"`
	RootCauses []ChartPoint `yaml:"root_causes"`
	Clusters   []ChartPoint `yaml:"clusters"`
	Sentiment  TimeSeries   `yaml:"sentiment"`
}
