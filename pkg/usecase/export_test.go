package usecase_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/xuri/excelize/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

func TestPipelineReport(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(t, nil)

	_, err := repo.Deal().Create(ctx, &model.Deal{
		CompanyName: "Acme", Status: types.DealStatusActive, Value: 50000, Currency: "USD",
	})
	gt.NoError(t, err)
	_, err = repo.Prospect().Create(ctx, &model.Prospect{
		CompanyName: "Initech", Tier: types.Tier2, Score: 55, Status: types.ProspectStatusActive,
	})
	gt.NoError(t, err)

	var buf bytes.Buffer
	gt.NoError(t, uc.Export.PipelineReport(ctx, &buf))

	workbook, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	gt.NoError(t, err)
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	gt.Array(t, sheets).Length(3)
	gt.Value(t, sheets[0]).Equal("Deals")

	rows, err := workbook.GetRows("Deals")
	gt.NoError(t, err)
	gt.Array(t, rows).Length(2)
	gt.Value(t, rows[0][0]).Equal("Company")
	gt.Value(t, rows[1][0]).Equal("Acme")
	// a fresh deal has nothing qualified yet
	gt.Value(t, rows[1][4]).Equal("0%")

	rows, err = workbook.GetRows("Prospects")
	gt.NoError(t, err)
	gt.Array(t, rows).Length(2)
	gt.Value(t, rows[1][0]).Equal("Initech")
}

func TestPipelineReportEmptyCorpus(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	var buf bytes.Buffer
	gt.NoError(t, uc.Export.PipelineReport(ctx, &buf))
	gt.Value(t, buf.String()[:2]).Equal("PK")
}
