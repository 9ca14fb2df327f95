package services

import (
	"fmt"

	"github.com/google/uuid"

	"example.com/shopfloor/services/report/internal/models"
	"example.com/shopfloor/services/report/internal/timeline"
	"example.com/shopfloor/services/report/internal/utils"
)

// toLogEvent maps a stored machine log to a pipeline event. A corrupt meta
// column is dropped rather than blocking the report.
func toLogEvent(m models.MachineLog) timeline.LogEvent {
	meta, err := utils.UnmarshalMeta(m.Meta)
	if err != nil {
		meta = nil
	}
	return timeline.LogEvent{
		ID:        m.EventID,
		Timestamp: m.Timestamp,
		Action:    timeline.Action(m.Action),
		OrderID:   m.OrderRef,
		MCU:       m.MCU,
		Meta:      meta,
	}
}

// toOrderMeta maps a stored work order to the pipeline's metadata shape
func toOrderMeta(wo models.WorkOrder) timeline.OrderMeta {
	exts := make([]timeline.Extension, 0, len(wo.Extensions))
	for _, e := range wo.Extensions {
		exts = append(exts, timeline.Extension{Timestamp: e.Timestamp, Comment: e.Comment})
	}
	return timeline.OrderMeta{
		OrderID:       wo.OrderRef,
		PartName:      wo.PartName,
		TypeCode:      wo.TypeCode,
		TargetSeconds: wo.TargetSeconds,
		AllottedQty:   wo.AllottedQty,
		AcceptedQty:   wo.AcceptedQty,
		RejectedQty:   wo.RejectedQty,
		TimeSavedSec:  wo.TimeSavedSec,
		OperatorID:    wo.OperatorID,
		OperatorName:  wo.OperatorName,
		StartComment:  wo.StartComment,
		StopComment:   wo.StopComment,
		Extensions:    exts,
	}
}

// orderMetaFromEvent reconstructs minimal metadata from an ORDER_START
// event for orders that were never registered
func orderMetaFromEvent(ref string, e timeline.LogEvent) timeline.OrderMeta {
	return timeline.OrderMeta{
		OrderID:       ref,
		PartName:      utils.MetaString(e.Meta, "part_name"),
		TypeCode:      utils.MetaString(e.Meta, "order_type"),
		TargetSeconds: utils.MetaFloat64(e.Meta, "target_sec"),
		AllottedQty:   utils.MetaInt(e.Meta, "allotted_qty"),
		OperatorID:    utils.MetaString(e.Meta, "operator_id"),
		OperatorName:  utils.MetaString(e.Meta, "operator_name"),
	}
}

// workOrderFromPayload seeds a work-order record from an ORDER_START
// event's metadata. Fields the device does not report stay zero until the
// order record is updated out of band.
func workOrderFromPayload(p *models.LogPayload) *models.WorkOrder {
	return &models.WorkOrder{
		ID:            uuid.New(),
		OrderRef:      p.OrderRef,
		PartName:      utils.MetaString(p.Meta, "part_name"),
		TypeCode:      utils.MetaString(p.Meta, "order_type"),
		TargetSeconds: utils.MetaFloat64(p.Meta, "target_sec"),
		AllottedQty:   utils.MetaInt(p.Meta, "allotted_qty"),
		OperatorID:    utils.MetaString(p.Meta, "operator_id"),
		OperatorName:  utils.MetaString(p.Meta, "operator_name"),
	}
}

// toReportRows flattens the pipeline's row union into wire rows
func toReportRows(rows []timeline.Row) []models.ReportRow {
	out := make([]models.ReportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, toReportRow(r))
	}
	return out
}

// toReportRow handles every concrete row kind. The union is closed, so an
// unhandled kind is a programming error and panics.
func toReportRow(r timeline.Row) models.ReportRow {
	switch row := r.(type) {
	case *timeline.EventRow:
		return models.ReportRow{
			Kind:         string(row.Kind()),
			At:           row.When(),
			OrderRef:     row.Event.OrderID,
			Serial:       row.Serial,
			EventID:      row.Event.ID,
			Action:       string(row.Event.Action),
			Meta:         row.Event.Meta,
			CycleSeconds: row.CycleSeconds,
			JobLabel:     row.JobLabel,
			Verdict:      toRowVerdict(row.Verdict),
		}
	case *timeline.IdealGapRow:
		return models.ReportRow{
			Kind:     string(row.Kind()),
			At:       row.At,
			OrderRef: row.OrderID,
			Seconds:  row.Seconds,
		}
	case *timeline.LoadingGapRow:
		return models.ReportRow{
			Kind:     string(row.Kind()),
			At:       row.At,
			OrderRef: row.OrderID,
			Seconds:  row.Seconds,
		}
	case *timeline.IdleGapRow:
		return models.ReportRow{
			Kind:     string(row.Kind()),
			At:       row.At,
			OrderRef: row.OrderID,
			Seconds:  row.Seconds,
		}
	case *timeline.PauseRow:
		return models.ReportRow{
			Kind:          string(row.Kind()),
			At:            row.At,
			OrderRef:      row.OrderID,
			Seconds:       row.Seconds,
			Reason:        row.Reason,
			DeclaredBreak: row.DeclaredBreak,
			ShiftBreak:    row.ShiftBreak,
		}
	case *timeline.OrderHeaderRow:
		return models.ReportRow{
			Kind:          string(row.Kind()),
			At:            row.At,
			OrderRef:      row.OrderID,
			PartName:      row.PartName,
			TypeCode:      row.TypeCode,
			JobType:       string(row.JobType),
			OperatorID:    row.OperatorID,
			OperatorName:  row.OperatorName,
			TargetSeconds: row.TargetSeconds,
			Comment:       row.Comment,
		}
	case *timeline.OrderSummaryRow:
		return models.ReportRow{
			Kind:        string(row.Kind()),
			At:          row.At,
			OrderRef:    row.OrderID,
			Jobs:        row.Jobs,
			Cycles:      row.Cycles,
			CuttingSec:  row.CuttingSec,
			PauseSec:    row.PauseSec,
			AllottedQty: row.AllottedQty,
			AcceptedQty: row.AcceptedQty,
			RejectedQty: row.RejectedQty,
			Comment:     row.Comment,
		}
	default:
		panic(fmt.Sprintf("unhandled timeline row kind %q", r.Kind()))
	}
}

func toRowVerdict(v *timeline.Verdict) *models.RowVerdict {
	if v == nil {
		return nil
	}
	return &models.RowVerdict{
		Class:     string(v.Class),
		Reason:    string(v.Reason),
		Text:      v.Text,
		ActualSec: v.ActualSec,
		IdealSec:  v.IdealSec,
		DeltaSec:  v.DeltaSec,
		DeltaPct:  v.DeltaPct,
	}
}

// toReportStats maps the pipeline's aggregates to the wire shape
func toReportStats(s timeline.Stats) models.ReportStats {
	orders := make([]models.OrderBreakdown, 0, len(s.Orders))
	for _, o := range s.Orders {
		blocks := make([]models.JobBlockDoc, 0, len(o.Blocks))
		for _, b := range o.Blocks {
			blocks = append(blocks, toJobBlockDoc(b))
		}
		orders = append(orders, models.OrderBreakdown{
			OrderRef:    o.OrderID,
			PartName:    o.PartName,
			JobType:     string(o.JobType),
			Jobs:        o.Jobs,
			Cycles:      o.Cycles,
			CuttingSec:  o.CuttingSec,
			PauseSec:    o.PauseSec,
			TargetSec:   o.TargetSec,
			AllottedQty: o.AllottedQty,
			AcceptedQty: o.AcceptedQty,
			RejectedQty: o.RejectedQty,
			Blocks:      blocks,
		})
	}

	operators := make([]models.OperatorBreakdown, 0, len(s.Operators))
	for _, op := range s.Operators {
		operators = append(operators, models.OperatorBreakdown{
			OperatorID:   op.OperatorID,
			OperatorName: op.OperatorName,
			Orders:       op.Orders,
			Jobs:         op.Jobs,
			CuttingSec:   op.CuttingSec,
		})
	}

	return models.ReportStats{
		TotalJobs:      s.TotalJobs,
		TotalCycles:    s.TotalCycles,
		CuttingSec:     s.CuttingSec,
		PauseSec:       s.PauseSec,
		LoadingSec:     s.LoadingSec,
		IdleSec:        s.IdleSec,
		TotalSec:       s.TotalSec,
		UtilizationPct: s.UtilizationPct,
		AllottedQty:    s.AllottedQty,
		AcceptedQty:    s.AcceptedQty,
		RejectedQty:    s.RejectedQty,
		Orders:         orders,
		Operators:      operators,
	}
}

func toJobBlockDoc(b timeline.JobBlock) models.JobBlockDoc {
	doc := models.JobBlockDoc{
		Label:        b.Label,
		Cycles:       len(b.Cycles),
		Seconds:      b.Seconds,
		VarianceText: b.VarianceText,
		Verdict:      toRowVerdict(b.Verdict),
	}
	if b.Target != nil {
		doc.TargetSec = *b.Target
	}
	if b.Variance != nil {
		doc.VarianceSec = *b.Variance
	}
	return doc
}
