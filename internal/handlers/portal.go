package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"weather_station/internal/models"
	"weather_station/internal/service"

	"github.com/gin-gonic/gin"
)

// Plain-text verdicts of POST /wifi.
const (
	replySuccess = "success"
	replyFailure = "failure"
)

// submitTimeout covers the portal join budget plus the slot commit.
const submitTimeout = 30 * time.Second

const portalPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"><title>Configurar WiFi</title></head>
<body>
<h2>Configurar WiFi</h2>
<form method="POST" action="/wifi">
<label>Red (SSID)<br><input name="ssid" maxlength="100" required></label><br><br>
<label>Clave<br><input name="password" type="password" maxlength="100"></label><br><br>
<button type="submit">Guardar</button>
</form>
</body>
</html>`

type wifiForm struct {
	SSID     string `form:"ssid"`
	Password string `form:"password"`
}

// @Summary      Configuration portal form
// @Tags         portal
// @Produce      html
// @Success      200
// @Failure      404  {string}  string
// @Router       / [get]
func (h *Handler) portalPage(c *gin.Context) {
	if !h.services.Portal.Active() {
		c.String(http.StatusNotFound, "configuration portal is not active")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(portalPage))
}

// @Summary      Submit network credentials
// @Description  Joins the network; on success the credentials are saved and the node restarts
// @Tags         portal
// @Accept       x-www-form-urlencoded
// @Produce      plain
// @Param        ssid      formData  string  true   "Network name"
// @Param        password  formData  string  false  "Network secret"
// @Success      200  {string}  string  "success"
// @Failure      400  {string}  string  "failure"
// @Failure      409  {string}  string  "failure"
// @Failure      502  {string}  string  "failure"
// @Router       /wifi [post]
func (h *Handler) submitWiFi(c *gin.Context) {
	var form wifiForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, replyFailure)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout)
	defer cancel()

	err := h.services.Portal.SubmitCredentials(ctx, models.CredentialRecord{
		NetworkName: form.SSID,
		Secret:      form.Password,
	})
	if err != nil {
		if h.log != nil {
			h.log.Infow("portal_submit_failed", "network", form.SSID, "err", err)
		}
		c.String(portalStatus(err), replyFailure)
		return
	}
	c.String(http.StatusOK, replySuccess)
}

func portalStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPortalInactive), errors.Is(err, service.ErrPortalBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrJoinFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
