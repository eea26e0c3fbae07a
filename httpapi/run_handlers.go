package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"studyqc/app"
	"studyqc/domain/core"
	"studyqc/domain/report"
	apperrors "studyqc/internal/errors"
	"studyqc/ports"
)

// handleCreateRun starts a QC run from a JSON body of refs or from a
// multipart upload of the study files themselves.
func (s *Server) handleCreateRun(c *gin.Context) {
	if c.ContentType() == "multipart/form-data" {
		s.handleUploadRun(c)
		return
	}

	var req app.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	s.executeRun(c, req)
}

// handleUploadRun accepts either a single "workbook" file whose sheets hold
// the tables, or separate "data", "changes", "warnings" (and optional
// "dict") files. Uploads are staged in a temp directory for the run.
func (s *Server) handleUploadRun(c *gin.Context) {
	dir, err := os.MkdirTemp("", "studyqc-upload-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "staging upload"})
		return
	}

	req := app.RunRequest{
		StudyKey: core.StudyKey(c.PostForm("study_key")),
		Profile:  c.PostForm("profile") == "true",
	}

	if file, err := c.FormFile("workbook"); err == nil {
		path := filepath.Join(dir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, path); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "saving upload"})
			return
		}
		if req.StudyKey == "" {
			stem := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
			req.StudyKey = core.StudyKey(stem)
		}
		req.DatasetRef = sheetRef(path, c.DefaultPostForm("data_sheet", s.study.DataSheet))
		req.ChangeRulesRef = sheetRef(path, c.DefaultPostForm("change_sheet", s.study.ChangeSheet))
		req.WarningRulesRef = sheetRef(path, c.DefaultPostForm("warning_sheet", s.study.WarningSheet))
		if sheet := c.PostForm("dict_sheet"); sheet != "" {
			req.DictionaryRef = sheetRef(path, sheet)
		}
		s.executeRun(c, req)
		return
	}

	for _, part := range []struct {
		field string
		ref   *string
	}{
		{"data", &req.DatasetRef},
		{"changes", &req.ChangeRulesRef},
		{"warnings", &req.WarningRulesRef},
	} {
		file, err := c.FormFile(part.field)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "upload needs a workbook file or data, changes, and warnings files",
			})
			return
		}
		path := filepath.Join(dir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, path); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "saving upload"})
			return
		}
		*part.ref = path
	}
	if file, err := c.FormFile("dict"); err == nil {
		path := filepath.Join(dir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, path); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "saving upload"})
			return
		}
		req.DictionaryRef = path
	}
	s.executeRun(c, req)
}

func (s *Server) executeRun(c *gin.Context, req app.RunRequest) {
	if req.StudyKey == "" || req.DatasetRef == "" || req.ChangeRulesRef == "" || req.WarningRulesRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "study_key, dataset_ref, change_rules_ref, and warning_rules_ref are required",
		})
		return
	}

	res, err := s.qc.RunStudy(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": res.RunID,
		"report": res.Report,
		"events": res.Log.Events,
	})
}

// handleListRuns lists recorded runs, newest first
func (s *Server) handleListRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is not configured"})
		return
	}

	filters := ports.RunFilters{Limit: 50}
	if v := c.Query("study"); v != "" {
		key := core.StudyKey(v)
		filters.StudyKey = &key
	}
	if v := c.Query("status"); v != "" {
		status := ports.RunStatus(v)
		filters.Status = &status
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filters.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filters.Offset = n
		}
	}

	records, err := s.runs.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": records, "count": len(records)})
}

// handleGetRun returns one run record with its parsed report
func (s *Server) handleGetRun(c *gin.Context) {
	rec, ok := s.loadRun(c)
	if !ok {
		return
	}

	resp := gin.H{"run": rec}
	if len(rec.ReportJSON) > 0 {
		var rep report.Report
		if err := json.Unmarshal(rec.ReportJSON, &rep); err == nil {
			resp["report"] = rep
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetRunReport serves the stored report rendered as HTML
func (s *Server) handleGetRunReport(c *gin.Context) {
	rec, ok := s.loadRun(c)
	if !ok {
		return
	}
	if len(rec.ReportJSON) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no stored report"})
		return
	}

	var rep report.Report
	if err := json.Unmarshal(rec.ReportJSON, &rep); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored report is unreadable"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.RenderHTML(rep))
}

func (s *Server) loadRun(c *gin.Context) (*ports.RunRecord, bool) {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is not configured"})
		return nil, false
	}

	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	rec, err := s.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return rec, true
}

// handleBatch runs several studies with bounded concurrency
func (s *Server) handleBatch(c *gin.Context) {
	var body struct {
		Runs []app.RunRequest `json:"runs"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(body.Runs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "runs must not be empty"})
		return
	}

	res := s.batch.RunBatch(c.Request.Context(), body.Runs)

	outcomes := make([]gin.H, len(res.Outcomes))
	for i, out := range res.Outcomes {
		o := gin.H{"study_key": out.StudyKey}
		if out.Err != nil {
			o["error"] = out.Err.Error()
		} else {
			o["run_id"] = out.RunID
			if out.Report != nil {
				o["total_changes"] = out.Report.Summary.TotalChanges()
				o["total_warnings"] = out.Report.Summary.TotalWarnings()
				o["flagged_rows"] = out.Report.Flagged.Rows
			}
		}
		outcomes[i] = o
	}

	c.JSON(http.StatusOK, gin.H{
		"succeeded":  res.Succeeded,
		"failed":     res.Failed,
		"runtime_ms": res.RuntimeMs,
		"outcomes":   outcomes,
	})
}

// sheetRef joins a workbook path with a sheet name in the source's
// path#sheet convention. An empty sheet means the workbook's first sheet.
func sheetRef(path, sheet string) string {
	if sheet == "" {
		return path
	}
	return path + "#" + sheet
}

func statusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeSourceError, apperrors.CodeRuleLoadError,
		apperrors.CodeRunFailed, apperrors.CodeInvalidInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
