package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/registry"
)

type redeemRequest struct {
	Code         string `json:"code"`
	SerialNumber string `json:"serialNumber"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

type setStatusRequest struct {
	Status fleet.Status `json:"status"`
}

type heartbeatRequest struct {
	ConnectionStatus fleet.ConnectionStatus `json:"connectionStatus"`
}

type globalStatusRequest struct {
	Status fleet.OperationalStatus `json:"status"`
}

// bindJSON decodes the request body into dst. Registry errors raised while
// decoding (an unknown device type, say) are reported as such; anything
// else is a 400. Returns false if a response was written.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if fleet.CodeOf(err) != "" {
			s.fail(c, err)
		} else {
			badRequest(c, "malformed JSON body: "+err.Error())
		}
		return false
	}
	return true
}

func (s *Server) createActivation(c *gin.Context) {
	var draft fleet.DeviceDraft
	if !s.bindJSON(c, &draft) {
		return
	}
	a, err := s.reg.CreateActivation(c.Request.Context(), draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusCreated, a)
}

func (s *Server) listActivations(c *gin.Context) {
	codes, err := s.reg.ListActive(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, codes)
}

func (s *Server) getActivation(c *gin.Context) {
	a, err := s.reg.GetActivation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, a)
}

func (s *Server) revokeActivation(c *gin.Context) {
	a, err := s.reg.Revoke(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, a)
}

func (s *Server) redeem(c *gin.Context) {
	var req redeemRequest
	if !s.bindJSON(c, &req) {
		return
	}
	d, err := s.reg.Redeem(c.Request.Context(), req.Code, registry.RedeemExtra{SerialNumber: req.SerialNumber})
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, d)
}

func (s *Server) listDevices(c *gin.Context) {
	var filter fleet.DeviceFilter
	if t := c.Query("type"); t != "" {
		typ, err := fleet.ParseDeviceType(t)
		if err != nil {
			s.fail(c, err)
			return
		}
		filter.Type = typ
	}
	devices, err := s.reg.List(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, devices)
}

func (s *Server) getDevice(c *gin.Context) {
	d, err := s.reg.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, d)
}

func (s *Server) deleteDevice(c *gin.Context) {
	id := c.Param("id")
	if err := s.reg.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

func (s *Server) setActive(c *gin.Context) {
	var req setActiveRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Active == nil {
		s.fail(c, fleet.NewValidationError("active is required"))
		return
	}
	d, err := s.reg.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, d)
}

func (s *Server) setStatus(c *gin.Context) {
	var req setStatusRequest
	if !s.bindJSON(c, &req) {
		return
	}
	d, err := s.reg.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, d)
}

// heartbeat accepts an empty body as "online".
func (s *Server) heartbeat(c *gin.Context) {
	req := heartbeatRequest{ConnectionStatus: fleet.ConnectionOnline}
	if c.Request.ContentLength != 0 && !s.bindJSON(c, &req) {
		return
	}
	if req.ConnectionStatus == "" {
		req.ConnectionStatus = fleet.ConnectionOnline
	}
	d, err := s.reg.RecordHeartbeat(c.Request.Context(), c.Param("id"), req.ConnectionStatus)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, d)
}

func (s *Server) getGlobalStatus(c *gin.Context) {
	gs, err := s.reg.GlobalStatus(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, gs)
}

func (s *Server) setGlobalStatus(c *gin.Context) {
	var req globalStatusRequest
	if !s.bindJSON(c, &req) {
		return
	}
	gs, err := s.reg.SetGlobalStatus(c.Request.Context(), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, gs)
}

// streamGlobalStatus sends the current global status as a server-sent
// event, then one event per change until the client goes away.
func (s *Server) streamGlobalStatus(c *gin.Context) {
	ctx := c.Request.Context()

	updates, cancel := s.reg.SubscribeGlobalStatus()
	defer cancel()

	current, err := s.reg.GlobalStatus(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("status", current)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case gs, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("status", gs)
			return true
		}
	})
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.reg.Summary(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, sum)
}
