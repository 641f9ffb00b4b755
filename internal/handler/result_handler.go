package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smkbandara/cbt-backend/internal/repository"
	"github.com/smkbandara/cbt-backend/internal/response"
)

// ResultHandler handles graded result listing and CSV export.
type ResultHandler struct {
	sessions *repository.SessionRepository
	subjects *repository.SubjectRepository
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(sessions *repository.SessionRepository, subjects *repository.SubjectRepository) *ResultHandler {
	return &ResultHandler{sessions: sessions, subjects: subjects}
}

// ListBySubject godoc
// GET /api/v1/admin/subjects/:id/results
// Returns every session for a subject with grades where available.
func (h *ResultHandler) ListBySubject(c *gin.Context) {
	subjectID, ok := paramInt(c, "id")
	if !ok {
		return
	}

	if _, err := h.subjects.GetByID(c.Request.Context(), subjectID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	results, err := h.sessions.ListResultsBySubject(c.Request.Context(), subjectID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// ExportCSV godoc
// GET /api/v1/admin/subjects/:id/results/export
// Streams the subject's results as a CSV download.
func (h *ResultHandler) ExportCSV(c *gin.Context) {
	subjectID, ok := paramInt(c, "id")
	if !ok {
		return
	}

	subject, err := h.subjects.GetByID(c.Request.Context(), subjectID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	results, err := h.sessions.ListResultsBySubject(c.Request.Context(), subjectID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	filename := fmt.Sprintf("hasil-%s-%s.csv", slugify(subject.Name), time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	w.Write([]string{"No Peserta", "Nama", "Kelas", "Benar", "Salah", "Skor", "Pelanggaran", "Status", "Waktu Selesai"})
	for _, r := range results {
		w.Write([]string{
			r.ParticipantNumber,
			r.StudentName,
			r.ClassName,
			intOrEmpty(r.CorrectCount),
			intOrEmpty(r.WrongCount),
			intOrEmpty(r.Score),
			strconv.Itoa(r.Violations),
			string(r.Status),
			timeOrEmpty(r.EndTime),
		})
	}
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '-')
		}
	}
	return string(out)
}
