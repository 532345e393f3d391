package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	httpctrl "github.com/dealbrain-lab/dealbrain/pkg/controller/http"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/memory"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
)

func newTestServer(t *testing.T, mock *llm.Mock) (*httptest.Server, *usecase.UseCases) {
	t.Helper()
	if mock == nil {
		mock = &llm.Mock{}
	}
	uc := usecase.New(memory.New(), llm.NewGateway(mock))
	server := httptest.NewServer(httpctrl.New(uc))
	t.Cleanup(server.Close)
	return server, uc
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	gt.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	gt.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/api/health")
	gt.NoError(t, err)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	body := decodeBody[map[string]string](t, resp)
	gt.Value(t, body["status"]).Equal("ok")
}

func TestProspectLifecycle(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/prospects", map[string]any{
		"CompanyName": "Initech", "Industry": "fintech",
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	prospect := decodeBody[model.Prospect](t, resp)
	gt.Value(t, prospect.CompanyName).Equal("Initech")

	resp = postJSON(t, fmt.Sprintf("%s/api/prospects/%s/signals", server.URL, prospect.ID), map[string]any{
		"signalType": "funding_round", "weight": 75,
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	resp.Body.Close()

	resp = postJSON(t, fmt.Sprintf("%s/api/prospects/%s/score", server.URL, prospect.ID), nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	score := decodeBody[model.ScoreResult](t, resp)
	gt.Value(t, score.Score).Equal(float64(75))
	gt.Value(t, score.Tier).Equal(types.Tier1)

	resp = postJSON(t, fmt.Sprintf("%s/api/prospects/%s/convert", server.URL, prospect.ID), nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	deal := decodeBody[model.Deal](t, resp)
	gt.Value(t, deal.CompanyName).Equal("Initech")

	// converting twice is rejected
	resp = postJSON(t, fmt.Sprintf("%s/api/prospects/%s/convert", server.URL, prospect.ID), nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	resp.Body.Close()
}

func TestProspectErrors(t *testing.T) {
	server, _ := newTestServer(t, nil)

	// missing company name
	resp := postJSON(t, server.URL+"/api/prospects", map[string]any{"Industry": "fintech"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	resp.Body.Close()

	// unknown id
	resp, err := http.Get(server.URL + "/api/prospects/nope")
	gt.NoError(t, err)
	gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)
	resp.Body.Close()
}

func TestMeddpiccUpdateAndSummary(t *testing.T) {
	server, uc := newTestServer(t, nil)
	ctx := context.Background()

	deal, err := uc.Repository().Deal().Create(ctx, &model.Deal{
		CompanyName: "Acme", Status: types.DealStatusActive,
	})
	gt.NoError(t, err)

	encoded, err := json.Marshal(map[string]any{
		"status": "identified", "evidence": "CFO owns the budget",
	})
	gt.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/deals/%s/meddpicc/E", server.URL, deal.ID), bytes.NewReader(encoded))
	gt.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	resp.Body.Close()

	resp, err = http.Get(fmt.Sprintf("%s/api/deals/%s/meddpicc-summary", server.URL, deal.ID))
	gt.NoError(t, err)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	summary := decodeBody[usecase.Summary](t, resp)
	gt.Array(t, summary.Identified).Length(1)
	gt.Value(t, summary.Readiness).Equal(1.0 / 8.0)
}

func TestQueryStreamServerSentEvents(t *testing.T) {
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "short answer", nil
		},
	}
	server, _ := newTestServer(t, mock)

	resp := postJSON(t, server.URL+"/api/query/stream", map[string]string{
		"query": "what needs my attention",
	})
	defer resp.Body.Close()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	gt.Value(t, resp.Header.Get("Content-Type")).Equal("text/event-stream")

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	gt.NoError(t, err)

	var kinds []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}
		gt.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		kinds = append(kinds, event.Type)
	}
	gt.Number(t, len(kinds)).Greater(2)
	gt.Value(t, kinds[0]).Equal("meta")
	gt.Value(t, kinds[len(kinds)-1]).Equal("done")
}

func TestLearningTriggerRejectsUnknownAnalysis(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/learning/trigger/bogus", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	resp.Body.Close()
}

func TestOutcomeCreate(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/outcomes", map[string]any{
		"entityType": "deal", "entityId": "deal-1", "outcomeType": "won", "value": 50000,
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	outcome := decodeBody[model.Outcome](t, resp)
	gt.Value(t, outcome.OutcomeType).Equal("won")

	resp = postJSON(t, server.URL+"/api/outcomes", map[string]any{"entityType": "deal"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	resp.Body.Close()
}

func TestSectionEndpoint(t *testing.T) {
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "a short deal briefing", nil
		},
	}
	server, uc := newTestServer(t, mock)
	ctx := context.Background()

	deal, err := uc.Repository().Deal().Create(ctx, &model.Deal{
		CompanyName: "Acme", Status: types.DealStatusActive,
	})
	gt.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("%s/api/sections/deal/%s/deal_summary", server.URL, deal.ID))
	gt.NoError(t, err)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	section := decodeBody[model.SectionResult](t, resp)
	gt.Value(t, section.Content).Equal("a short deal briefing")

	// a section type from the wrong entity family
	resp, err = http.Get(fmt.Sprintf("%s/api/sections/deal/%s/person_summary", server.URL, deal.ID))
	gt.NoError(t, err)
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	resp.Body.Close()
}

func TestExportPipelineDownload(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/api/export/pipeline")
	gt.NoError(t, err)
	defer resp.Body.Close()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	gt.Value(t, resp.Header.Get("Content-Type")).
		Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	gt.Bool(t, strings.Contains(resp.Header.Get("Content-Disposition"), "pipeline-")).True()

	var buf bytes.Buffer
	n, err := buf.ReadFrom(resp.Body)
	gt.NoError(t, err)
	gt.Number(t, n).Greater(0)
	// xlsx files are zip archives
	gt.Value(t, buf.String()[:2]).Equal("PK")
}
