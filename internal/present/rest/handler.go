package rest

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/memoryvault/vault"
	"github.com/memoryvault/vault/internal/domain"
	"github.com/memoryvault/vault/internal/present/rest/middleware"
	"github.com/memoryvault/vault/internal/present/rest/presenter"
	"github.com/memoryvault/vault/internal/service"
	"github.com/memoryvault/vault/internal/usecase"
)

// maxUploadBytes bounds a single publish. Content is held in memory for
// encryption, so the bound is deliberate.
const maxUploadBytes = 32 << 20

type Handler struct {
	vault  *usecase.VaultUsecase
	access *usecase.AccessUsecase
	signal *service.SignalService
}

func NewHandler(
	vaultUC *usecase.VaultUsecase,
	access *usecase.AccessUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		vault:  vaultUC,
		access: access,
		signal: signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.POST("/api/v1/publish", h.handlePublish)
	e.GET("/api/v1/content/:ref", h.handleView)
	e.GET("/api/v1/documents/:ref", h.handleDocument)
	e.POST("/api/v1/grants", h.handleGrant)
	e.POST("/api/v1/requests", h.handleCreateRequest)
	e.POST("/api/v1/requests/:id/respond", h.handleRespond)
	e.GET("/api/v1/requests", h.handleListRequests)
	e.GET("/api/v1/requests/status", h.handleRequestStatus)
	e.GET("/api/v1/shared", h.handleSharedWith)
	e.GET("/api/v1/shared/check", h.handleCheckShared)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

// caller returns the authenticated wallet identity or fails the request.
func (h *Handler) caller(c echo.Context) (vault.Identity, error) {
	wallet := middleware.WalletFromContext(c.Request().Context())
	if wallet == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "wallet address required")
	}
	identity, err := vault.ParseIdentity(wallet)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid wallet address")
	}
	return identity, nil
}

type publishResponse struct {
	ContentRef      string              `json:"contentRef"`
	DocumentAddress string              `json:"documentAddress"`
	ContentAddress  string              `json:"contentAddress"`
	Document        vault.GrantDocument `json:"document"`
}

func (h *Handler) handlePublish(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := h.caller(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return presenter.BadRequestMessage(c, "file part is required")
	}
	if fileHeader.Size > maxUploadBytes {
		return presenter.BadRequestMessage(c, "file too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return presenter.InternalError(c, err)
	}
	defer file.Close()

	plaintext, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	if len(plaintext) > maxUploadBytes {
		return presenter.BadRequestMessage(c, "file too large")
	}

	desc := vault.Descriptive{
		Name:         c.FormValue("name"),
		Description:  c.FormValue("description"),
		FileType:     fileHeader.Header.Get("Content-Type"),
		OriginalSize: uint64(len(plaintext)),
	}
	if desc.Name == "" {
		desc.Name = fileHeader.Filename
	}

	pub, err := h.vault.Publish(ctx, plaintext, owner, desc)
	if err != nil {
		return presenter.Failure(c, err)
	}

	// The stable ref defaults to the ciphertext address, which never changes
	// across document snapshots. Callers with an external registry can bind
	// their own ref instead.
	contentRef := c.FormValue("contentRef")
	if contentRef == "" {
		contentRef = pub.ContentAddress
	}
	if err := h.vault.Register(ctx, contentRef, pub.Address); err != nil {
		return presenter.Failure(c, err)
	}

	return presenter.OK(c, publishResponse{
		ContentRef:      contentRef,
		DocumentAddress: pub.Address,
		ContentAddress:  pub.ContentAddress,
		Document:        pub.Document,
	})
}

func (h *Handler) handleView(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := h.caller(c)
	if err != nil {
		return err
	}

	asOwner := c.QueryParam("role") == "owner"

	view, err := h.vault.View(ctx, c.Param("ref"), caller, asOwner)
	if err != nil {
		return presenter.Failure(c, err)
	}

	contentType := view.FileType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	if view.NewAddress != "" {
		c.Response().Header().Set("X-Document-Address", view.NewAddress)
	}

	return c.Blob(http.StatusOK, contentType, view.Plaintext)
}

func (h *Handler) handleDocument(c echo.Context) error {
	ctx := c.Request().Context()

	doc, address, err := h.vault.FetchDocument(ctx, c.Param("ref"))
	if err != nil {
		return presenter.Failure(c, err)
	}

	return presenter.OK(c, echo.Map{"address": address, "document": doc})
}

type grantRequest struct {
	ContentRef       string `json:"contentRef"`
	ViewerWallet     string `json:"viewerWallet"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
	ViewLimit        uint   `json:"viewLimit"`
}

func (h *Handler) handleGrant(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := h.caller(c)
	if err != nil {
		return err
	}

	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.ContentRef == "" || req.ViewerWallet == "" {
		return presenter.BadRequestMessage(c, "contentRef and viewerWallet are required")
	}

	opts := usecase.GrantOptions{ViewLimit: req.ViewLimit}
	if req.ExpiresInSeconds > 0 {
		opts.ExpiresIn = time.Duration(req.ExpiresInSeconds) * time.Second
	}

	res, err := h.vault.Grant(ctx, req.ContentRef, owner, req.ViewerWallet, opts)
	if err != nil {
		return presenter.Failure(c, err)
	}

	return presenter.OK(c, echo.Map{"address": res.Address, "document": res.Document})
}

type createRequestRequest struct {
	OwnerWallet string `json:"ownerWallet"`
	ContentRef  string `json:"contentRef"`
	Message     string `json:"message"`
}

func (h *Handler) handleCreateRequest(c echo.Context) error {
	ctx := c.Request().Context()

	requester, err := h.caller(c)
	if err != nil {
		return err
	}

	var req createRequestRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.OwnerWallet == "" || req.ContentRef == "" {
		return presenter.BadRequestMessage(c, "ownerWallet and contentRef are required")
	}

	created, err := h.access.CreateOrRefresh(ctx, requester.String(), req.OwnerWallet, req.ContentRef, req.Message)
	if err != nil {
		return presenter.Failure(c, err)
	}

	return presenter.OK(c, created)
}

type respondRequest struct {
	Decision string `json:"decision"`
}

func (h *Handler) handleRespond(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := h.caller(c); err != nil {
		return err
	}

	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	updated, err := h.access.Respond(ctx, c.Param("id"), domain.Decision(req.Decision))
	if err != nil {
		return presenter.Failure(c, err)
	}

	return presenter.OK(c, updated)
}

func (h *Handler) handleListRequests(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := h.caller(c)
	if err != nil {
		return err
	}

	var reqs []domain.AccessRequest
	switch c.QueryParam("role") {
	case "", "owner":
		reqs, err = h.access.ListPending(ctx, caller.String())
	case "requester":
		reqs, err = h.access.ListForRequester(ctx, caller.String())
	default:
		return presenter.BadRequestMessage(c, "invalid role parameter")
	}
	if err != nil {
		return presenter.Failure(c, err)
	}

	return presenter.OK(c, reqs)
}

func (h *Handler) handleRequestStatus(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := h.caller(c)
	if err != nil {
		return err
	}

	contentRef := c.QueryParam("contentRef")
	if contentRef == "" {
		return presenter.BadRequestMessage(c, "contentRef parameter is required")
	}

	req, err := h.access.Status(ctx, caller.String(), contentRef)
	if err != nil {
		return presenter.Failure(c, err)
	}

	return presenter.OK(c, req)
}

// sharedResource is a SharedAccess row joined with the descriptive fields of
// its current grant document.
type sharedResource struct {
	domain.SharedAccess
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

func (h *Handler) handleSharedWith(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := h.caller(c)
	if err != nil {
		return err
	}

	shared, err := h.access.SharedWith(ctx, caller.String())
	if err != nil {
		return presenter.Failure(c, err)
	}

	resources := make([]sharedResource, 0, len(shared))
	for _, rec := range shared {
		res := sharedResource{SharedAccess: rec}
		doc, _, err := h.vault.FetchDocument(ctx, rec.ContentRef)
		if err != nil {
			// A record whose document cannot be fetched right now still
			// lists; the descriptive fields just stay empty.
			slog.WarnContext(ctx, "shared document not resolvable",
				slog.String("contentRef", rec.ContentRef),
				slog.String("error", err.Error()),
			)
		} else {
			res.Name = doc.Name
			res.Description = doc.Description
			res.Image = doc.Image
		}
		resources = append(resources, res)
	}

	return presenter.OK(c, resources)
}

func (h *Handler) handleCheckShared(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := h.caller(c)
	if err != nil {
		return err
	}

	contentRef := c.QueryParam("contentRef")
	if contentRef == "" {
		return presenter.BadRequestMessage(c, "contentRef parameter is required")
	}

	shared, err := h.access.CheckShared(ctx, caller.String(), contentRef)
	if err != nil {
		return presenter.Failure(c, err)
	}

	return presenter.OK(c, echo.Map{"shared": shared})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) handleRealtime(c echo.Context) error {

	// Browsers cannot set headers on websocket dials, so the wallet rides
	// the query string here.
	wallet := c.QueryParam("wallet")
	if wallet == "" {
		wallet = middleware.WalletFromContext(c.Request().Context())
	}
	identity, err := vault.ParseIdentity(wallet)
	if err != nil {
		return presenter.Unauthorized(c, "invalid wallet address")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	events := h.signal.Subscribe(ctx, identity.String())

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var msg struct {
				Type string `json:"type"`
			}
			err := ws.ReadJSON(&msg)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				return
			}

			switch msg.Type {
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", msg.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			err := ws.WriteJSON(ev)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
