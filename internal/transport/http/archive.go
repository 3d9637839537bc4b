package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/service/archiveupload"
	"github.com/traktion/anttp/internal/service/tarbuild"
)

// registerArchiveRoutes wires the multipart archive and tarchive
// upload endpoints. Both accept the same multipart/form-data shape -
// one file part per archive member, the part's filename becoming its
// path within the archive - differing only in which builder packs
// them and which envelope kind the result gets published under.
func registerArchiveRoutes(r *gin.Engine, deps Deps) {
	r.POST("/api/v1/archive", func(c *gin.Context) {
		files, err := readMultipartFiles(c)
		if err != nil {
			writeError(c, err)
			return
		}

		upFiles := make([]archiveupload.File, len(files))
		for i, f := range files {
			upFiles[i] = archiveupload.File{Path: f.Path, Content: f.Content}
		}

		a, err := deps.Uploader.Upload(c.Request.Context(), upFiles)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"address": a.String()})
	})

	r.POST("/api/v1/tar_archive", func(c *gin.Context) {
		files, err := readMultipartFiles(c)
		if err != nil {
			writeError(c, err)
			return
		}

		tarFiles := make([]tarbuild.File, len(files))
		for i, f := range files {
			tarFiles[i] = tarbuild.File{Path: f.Path, Content: f.Content}
		}

		a, err := deps.TarBuilder.Build(c.Request.Context(), tarFiles)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"address": a.String()})
	})
}

type namedFile struct {
	Path    string
	Content []byte
}

// readMultipartFiles reads every file part of the request's multipart
// form, using each part's filename as its archive path.
func readMultipartFiles(c *gin.Context) ([]namedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "archive.multipart", err)
	}

	var out []namedFile
	for _, headers := range form.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "archive.multipart.open", err)
			}
			content, err := io.ReadAll(io.LimitReader(f, maxBinaryUploadBytes+1))
			f.Close()
			if err != nil {
				return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "archive.multipart.read", err)
			}
			if len(content) > maxBinaryUploadBytes {
				return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "archive.multipart.toolarge", nil)
			}
			out = append(out, namedFile{Path: fh.Filename, Content: content})
		}
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "archive.multipart.empty", nil)
	}
	return out, nil
}
