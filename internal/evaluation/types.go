package evaluation

// Fixed cutoffs reported for every run.
const (
	CutoffShallow = 5
	CutoffDeep    = 20
)

// TopicResult contains metrics for a single topic of a run.
type TopicResult struct {
	Topic     string  `json:"topic"`
	Retrieved int     `json:"retrieved"`
	Relevant  int     `json:"relevant"`
	AP        float64 `json:"ap"`
	P5        float64 `json:"p@5"`
	P20       float64 `json:"p@20"`
	NDCG20    float64 `json:"ndcg@20"`
	Recall20  float64 `json:"recall@20"`
	RR        float64 `json:"rr"` // reciprocal rank of the first relevant document
}

// RunSummary aggregates topic metrics for one run across every judged topic.
type RunSummary struct {
	Run             string        `json:"run"`
	Checksum        string        `json:"sha256,omitempty"` // of the run file, when loaded from disk
	Topics          int           `json:"topics"`
	TopicsRetrieved int           `json:"topics_retrieved"` // judged topics the run returned anything for
	MAP             float64       `json:"map"`
	P5              float64       `json:"p@5"`
	P20             float64       `json:"p@20"`
	NDCG20          float64       `json:"ndcg@20"`
	MeanRecall20    float64       `json:"mean_recall@20"`
	MRR             float64       `json:"mrr"`
	APStdDev        float64       `json:"ap_stddev"`
	PerTopic        []TopicResult `json:"per_topic,omitempty"`
}

// Standing is a run summary placed in the final ordering.
type Standing struct {
	Rank int `json:"rank"` // 1-based
	RunSummary
}

// Summary metric names, in report order.
const (
	MetricMAP      = "map"
	MetricP5       = "p5"
	MetricP20      = "p20"
	MetricNDCG20   = "ndcg20"
	MetricRecall20 = "recall20"
	MetricMRR      = "mrr"
)

// MetricNames lists every summary metric in report order.
var MetricNames = []string{MetricMAP, MetricP5, MetricP20, MetricNDCG20, MetricRecall20, MetricMRR}

// Metric returns the named summary metric.
func (s *RunSummary) Metric(name string) (float64, bool) {
	switch name {
	case MetricMAP:
		return s.MAP, true
	case MetricP5:
		return s.P5, true
	case MetricP20:
		return s.P20, true
	case MetricNDCG20:
		return s.NDCG20, true
	case MetricRecall20:
		return s.MeanRecall20, true
	case MetricMRR:
		return s.MRR, true
	}
	return 0, false
}
