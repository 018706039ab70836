package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/service"
)

type ProjectHandler struct {
	svc service.ProjectService
}

func NewProjectHandler(svc service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

type ProjectFileResponse struct {
	FileName  string `json:"fileName"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes"`
}

type ProjectResponse struct {
	ID          uint64                `json:"id"`
	OwnerUID    string                `json:"ownerUid"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Material    string                `json:"material"`
	WidthMM     float64               `json:"widthMm"`
	DepthMM     float64               `json:"depthMm"`
	HeightMM    float64               `json:"heightMm"`
	Quantity    int                   `json:"quantity"`
	Status      model.ProjectStatus   `json:"status"`
	Deleted     bool                  `json:"deleted"`
	Files       []ProjectFileResponse `json:"files"`
	CreatedAt   string                `json:"createdAt"`
}

type ProjectListResponse struct {
	Projects []ProjectResponse `json:"projects"`
	Total    int64             `json:"total"`
}

func toProjectResponse(p *model.Project) ProjectResponse {
	files := make([]ProjectFileResponse, 0, len(p.Files))
	for _, f := range p.Files {
		files = append(files, ProjectFileResponse{FileName: f.FileName, URL: f.URL, SizeBytes: f.SizeBytes})
	}
	return ProjectResponse{
		ID:          p.ID,
		OwnerUID:    p.OwnerUID,
		Title:       p.Title,
		Description: p.Description,
		Material:    p.Material,
		WidthMM:     p.WidthMM,
		DepthMM:     p.DepthMM,
		HeightMM:    p.HeightMM,
		Quantity:    p.Quantity,
		Status:      p.Status,
		Deleted:     p.Deleted(),
		Files:       files,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

func formFloat(c echo.Context, name string) (float64, bool) {
	v := c.FormValue(name)
	if v == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// openUploads opens every multipart file under field. The returned closer releases them all.
func openUploads(headers []*multipart.FileHeader) ([]service.FileUpload, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	uploads := make([]service.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, f)
		uploads = append(uploads, service.FileUpload{Name: fh.Filename, Size: fh.Size, Content: f})
	}
	return uploads, closeAll, nil
}

func (h *ProjectHandler) Create(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "expected multipart/form-data")
	}
	in := service.ProjectInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Material:    c.FormValue("material"),
	}
	var okW, okD, okH bool
	in.WidthMM, okW = formFloat(c, "widthMm")
	in.DepthMM, okD = formFloat(c, "depthMm")
	in.HeightMM, okH = formFloat(c, "heightMm")
	if !okW || !okD || !okH {
		return c.JSON(http.StatusBadRequest, newFieldError("dimensions", "dimensions must be numbers"))
	}
	if q := c.FormValue("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return c.JSON(http.StatusBadRequest, newFieldError("quantity", "quantity must be an integer"))
		}
		in.Quantity = n
	}
	uploads, closeAll, err := openUploads(form.File["files"])
	if err != nil {
		return badRequest(c, "failed to read uploaded file")
	}
	defer closeAll()
	in.Files = uploads

	p, err := h.svc.Create(c.Request().Context(), uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toProjectResponse(p))
}

func (h *ProjectHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toProjectResponse(p))
}

func (h *ProjectHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	list, total, err := h.svc.ListAvailable(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	resp := ProjectListResponse{Projects: make([]ProjectResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Projects = append(resp.Projects, toProjectResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProjectHandler) ListMine(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListMine(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]ProjectResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toProjectResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProjectHandler) Delete(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
