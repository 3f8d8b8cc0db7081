package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"topmovies/internal/http-api/dto"
	"topmovies/internal/http-api/repository"
	"topmovies/internal/http-api/service"
	"topmovies/internal/ingestion/tmdb"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	requestTimeout  = 5 * time.Second
	upstreamTimeout = 15 * time.Second
	pingTimeout     = 2 * time.Second
)

// RegisterValidations installs the custom form tags on gin's validator
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return dto.RegisterValidations(v)
}

type MovieHandler struct {
	movieService service.MovieService
	logger       *logrus.Logger
}

func NewMovieHandler(movieService service.MovieService, logger *logrus.Logger) *MovieHandler {
	return &MovieHandler{
		movieService: movieService,
		logger:       logger,
	}
}

// RegisterRoutes registers the movie pages
func (h *MovieHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/", h.Home)
	router.GET("/add", h.Add)
	router.POST("/add", h.Add)
	router.GET("/edit", h.Edit)
	router.POST("/edit", h.Edit)
	router.GET("/delete", h.Delete)
	router.POST("/delete", h.Delete)
	router.GET("/check-conn", h.CheckConn)
}

// Home renders the ranked list, or adds the movie picked on the selection page
// GET /?movie_id=<tmdb id>
func (h *MovieHandler) Home(c *gin.Context) {
	if raw, ok := c.GetQuery("movie_id"); ok && raw != "" {
		h.confirm(c, raw)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	movies := h.movieService.ListRanked(ctx)
	c.HTML(http.StatusOK, "index.html", gin.H{"Movies": movies})
}

func (h *MovieHandler) confirm(c *gin.Context, raw string) {
	externalID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || externalID <= 0 {
		h.renderError(c, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
	defer cancel()

	movie, err := h.movieService.AddFromExternal(ctx, externalID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/edit?id="+strconv.FormatInt(movie.ID, 10))
}

// Add shows the title form and, on a valid submit, the matching candidates
// GET|POST /add
func (h *MovieHandler) Add(c *gin.Context) {
	var form dto.AddMovieForm
	formErrors := dto.FormErrors{}

	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&form); err != nil {
			formErrors = dto.TranslateErrors(err)
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
			defer cancel()

			results, err := h.movieService.Search(ctx, form.Title)
			if err != nil {
				h.handleError(c, err)
				return
			}
			c.HTML(http.StatusOK, "select.html", gin.H{
				"PageTitle": "Select Movie",
				"Movies":    results,
			})
			return
		}
	}

	c.HTML(http.StatusOK, "add.html", gin.H{
		"PageTitle": "Add Movie",
		"Form":      form,
		"Errors":    formErrors,
	})
}

// Edit shows the rating form for one movie and applies a valid submit.
// An unknown id is a server fault here, unlike on /delete.
// GET|POST /edit?id=<id>
func (h *MovieHandler) Edit(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		h.fault(c, fmt.Errorf("invalid movie id %q: %w", c.Query("id"), err))
		return
	}

	movie, err := h.movieService.Get(ctx, id)
	if err != nil {
		h.fault(c, fmt.Errorf("look up movie %d: %w", id, err))
		return
	}

	var form dto.RateMovieForm
	formErrors := dto.FormErrors{}

	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&form); err != nil {
			formErrors = dto.TranslateErrors(err)
		} else {
			if _, err := h.movieService.Rate(ctx, id, form.Score(), form.Review); err != nil {
				h.handleError(c, err)
				return
			}
			c.Redirect(http.StatusFound, "/")
			return
		}
	}

	c.HTML(http.StatusOK, "edit.html", gin.H{
		"PageTitle": "Edit " + movie.Title,
		"ID":        id,
		"Title":     movie.Title,
		"Form":      form,
		"Errors":    formErrors,
	})
}

// Delete removes a movie and returns to the list
// GET|POST /delete?id=<id>
func (h *MovieHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		h.renderError(c, http.StatusNotFound, "Movie not found")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.movieService.Delete(ctx, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// CheckConn reports whether the database answers
// GET /check-conn
func (h *MovieHandler) CheckConn(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.movieService.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Database ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleError maps service and storage errors to a status page
func (h *MovieHandler) handleError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	} else {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Info("Request rejected")
	}
	h.renderError(c, status, message)
}

// fault renders a 500 for errors that have no user-facing meaning
func (h *MovieHandler) fault(c *gin.Context, err error) {
	h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	h.renderError(c, http.StatusInternalServerError, "Something went wrong.")
}

func (h *MovieHandler) renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"PageTitle":  http.StatusText(status),
		"Status":     status,
		"StatusText": http.StatusText(status),
		"Message":    message,
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrMovieNotFound):
		return http.StatusNotFound, "Movie not found"
	case errors.Is(err, repository.ErrDuplicateTitle):
		return http.StatusConflict, "This movie is already on your list"
	case errors.Is(err, service.ErrEmptyQuery), errors.Is(err, service.ErrBadRating):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, tmdb.ErrCircuitOpen):
		return http.StatusBadGateway, "The movie database is temporarily unavailable, try again shortly"
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway, "The movie database request failed"
	default:
		return http.StatusInternalServerError, "Something went wrong."
	}
}
