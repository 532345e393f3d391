package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xuri/excelize/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/safe"
)

// ExportUseCase writes pipeline reports as spreadsheets
type ExportUseCase struct {
	repo interfaces.Repository
}

func NewExportUseCase(repo interfaces.Repository) *ExportUseCase {
	return &ExportUseCase{repo: repo}
}

// PipelineReport writes an XLSX workbook with one sheet each for deals,
// prospects, and recent outreach.
func (uc *ExportUseCase) PipelineReport(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer safe.Close(ctx, f)

	if err := uc.writeDealsSheet(ctx, f); err != nil {
		return err
	}
	if err := uc.writeProspectsSheet(ctx, f); err != nil {
		return err
	}
	if err := uc.writeOutreachSheet(ctx, f); err != nil {
		return err
	}

	// drop the default sheet; Deals becomes the first sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return goerr.Wrap(err, "failed to drop default sheet")
	}

	if err := f.Write(w); err != nil {
		return goerr.Wrap(err, "failed to write pipeline report")
	}
	return nil
}

func (uc *ExportUseCase) writeDealsSheet(ctx context.Context, f *excelize.File) error {
	deals, err := uc.repo.Deal().List(ctx)
	if err != nil {
		return err
	}

	const sheet = "Deals"
	if _, err := f.NewSheet(sheet); err != nil {
		return goerr.Wrap(err, "failed to create deals sheet")
	}
	header := []any{"Company", "Status", "Value", "Currency", "Readiness", "Last activity", "Notes"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return goerr.Wrap(err, "failed to write deals header")
	}

	for i, deal := range deals {
		elements, err := uc.repo.Meddpicc().ListByDeal(ctx, deal.ID)
		if err != nil {
			return err
		}
		readiness := model.Readiness(elements)
		row := []any{
			deal.CompanyName,
			string(deal.Status),
			deal.Value,
			deal.Currency,
			fmt.Sprintf("%.0f%%", readiness*100),
			formatDate(deal.LastActivityAt),
			deal.Notes,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return goerr.Wrap(err, "failed to write deal row")
		}
	}
	return nil
}

func (uc *ExportUseCase) writeProspectsSheet(ctx context.Context, f *excelize.File) error {
	prospects, err := uc.repo.Prospect().List(ctx, "")
	if err != nil {
		return err
	}

	const sheet = "Prospects"
	if _, err := f.NewSheet(sheet); err != nil {
		return goerr.Wrap(err, "failed to create prospects sheet")
	}
	header := []any{"Company", "Industry", "Employees", "Tier", "Score", "Status", "Location"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return goerr.Wrap(err, "failed to write prospects header")
	}

	for i, prospect := range prospects {
		row := []any{
			prospect.CompanyName,
			prospect.Industry,
			prospect.EmployeeCount,
			int(prospect.Tier),
			prospect.Score,
			string(prospect.Status),
			prospect.Location,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return goerr.Wrap(err, "failed to write prospect row")
		}
	}
	return nil
}

func (uc *ExportUseCase) writeOutreachSheet(ctx context.Context, f *excelize.File) error {
	entries, err := uc.repo.Outreach().List(ctx, interfaces.OutreachFilter{})
	if err != nil {
		return err
	}

	const sheet = "Outreach"
	if _, err := f.NewSheet(sheet); err != nil {
		return goerr.Wrap(err, "failed to create outreach sheet")
	}
	header := []any{"Date", "Prospect", "Method", "Direction", "Outcome", "Next followup", "Notes"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return goerr.Wrap(err, "failed to write outreach header")
	}

	prospectNames := map[types.ProspectID]string{}
	for i, entry := range entries {
		name, ok := prospectNames[entry.ProspectID]
		if !ok {
			prospect, err := uc.repo.Prospect().Get(ctx, entry.ProspectID)
			if err == nil {
				name = prospect.CompanyName
			}
			prospectNames[entry.ProspectID] = name
		}
		followup := ""
		if entry.NextFollowup != nil {
			followup = formatDate(*entry.NextFollowup)
		}
		row := []any{
			formatDate(entry.Date),
			name,
			entry.Method,
			string(entry.Direction),
			string(entry.Outcome),
			followup,
			entry.Notes,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return goerr.Wrap(err, "failed to write outreach row")
		}
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
