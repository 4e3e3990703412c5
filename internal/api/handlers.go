package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/internal/middleware"
	"github.com/geneguard-server/internal/service"
)

func (s *Server) handleListDiseases(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"diseases": domain.SupportedDiseases()})
}

// handleUploadGenome scores a genotype upload against one disease
func (s *Server) handleUploadGenome(c *gin.Context) {
	maxRecords, err := optionalInt(c, "max_records", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, uploadError(err))
		return
	}
	body, err := file.Open()
	if err != nil {
		s.writeError(c, fmt.Errorf("opening upload: %w", err))
		return
	}
	defer body.Close()

	result, err := s.analysis.AnalyzeUpload(c.Request.Context(), service.UploadRequest{
		Filename:   file.Filename,
		Body:       body,
		Disease:    c.Query("disease"),
		MaxRecords: maxRecords,
		Actor:      c.ClientIP(),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleAutoRank ranks every supported disease for a genotype upload
func (s *Server) handleAutoRank(c *gin.Context) {
	maxRecords, err := optionalInt(c, "max_records", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	topN, err := optionalInt(c, "top_n", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	includeTips := true
	if v := c.Query("include_tips"); v != "" {
		includeTips, err = strconv.ParseBool(v)
		if err != nil {
			s.writeError(c, domain.NewValidationError("include_tips", "must be a boolean", v))
			return
		}
	}

	file, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, uploadError(err))
		return
	}
	body, err := file.Open()
	if err != nil {
		s.writeError(c, fmt.Errorf("opening upload: %w", err))
		return
	}
	defer body.Close()

	result, err := s.analysis.AutoRank(c.Request.Context(), service.AutoRankRequest{
		Filename:    file.Filename,
		Body:        body,
		MaxRecords:  maxRecords,
		TopN:        topN,
		IncludeTips: includeTips,
		Actor:       c.ClientIP(),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListResults(c *gin.Context) {
	limit, err := optionalInt(c, "limit", 20)
	if err != nil {
		s.writeError(c, err)
		return
	}
	offset, err := optionalInt(c, "offset", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	analyses, err := s.analysis.ListAnalyses(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": analyses, "count": len(analyses)})
}

func (s *Server) handleGetResult(c *gin.Context) {
	analysis, err := s.analysis.GetAnalysis(c.Request.Context(), c.Param("id"), c.ClientIP())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result":     analysis,
		"disclaimer": domain.Disclaimer,
	})
}

// handleExportCSV buffers the report so a failure can still become a JSON error
func (s *Server) handleExportCSV(c *gin.Context) {
	id := c.Param("id")

	var buf bytes.Buffer
	if err := s.analysis.ExportCSV(c.Request.Context(), id, c.ClientIP(), &buf); err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="geneguard_%s.csv"`, id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleDeleteResult(c *gin.Context) {
	if err := s.analysis.DeleteAnalysis(c.Request.Context(), c.Param("id"), c.ClientIP()); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps a pipeline error onto an APIError response
func (s *Server) writeError(c *gin.Context, err error) {
	status, message := statusFor(err)
	code := domain.ErrorCode(err)
	if status == http.StatusRequestEntityTooLarge {
		code = domain.ErrCodeInvalidInput
	}

	requestID := c.GetString(middleware.RequestIDKey)
	fields := logrus.Fields{
		"request_id": requestID,
		"status":     status,
		"code":       code,
		"error":      err,
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(fields).Error("Request failed")
		// internal details stay in the log
		c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, "", requestID))
		return
	}
	s.logger.WithFields(fields).Debug("Request rejected")
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, err.Error(), requestID))
}

// statusFor returns the HTTP status and public message for err
func statusFor(err error) (int, string) {
	var (
		verr    *domain.ValidationError
		sizeErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "Invalid request"
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge, "Upload too large"
	case errors.Is(err, domain.ErrUnsupportedDisease):
		return http.StatusBadRequest, "Invalid disease"
	case errors.Is(err, domain.ErrNoGenes):
		return http.StatusBadRequest, "No gene symbols extracted from file."
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "Unsupported file type"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Result not found"
	case errors.Is(err, domain.ErrMalformedRiskTable):
		return http.StatusInternalServerError, "Risk data is corrupt"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// uploadError distinguishes a missing file field from an oversized body
func uploadError(err error) error {
	var sizeErr *http.MaxBytesError
	if errors.As(err, &sizeErr) {
		return err
	}
	return domain.NewValidationError("file", "multipart field \"file\" is required", nil)
}

func optionalInt(c *gin.Context, name string, fallback int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer", v)
	}
	return n, nil
}
