package websocket

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Handler upgrades GET /ws. It expects the JWT middleware to have set user_id.
func (s *Server) Handler(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	deviceID := c.QueryParam("device_id")
	if deviceID == "" {
		deviceID = c.Request().Header.Get("X-Device-ID")
	}
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, userID, deviceID)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run(s.resolver)

	<-client.Context().Done()
	return nil
}
