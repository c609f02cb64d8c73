package http

import "github.com/gin-gonic/gin"

// Server owns process startup for the HTTP surface. All routing and
// middleware assembly happens in NewRouter; the split keeps the engine
// reachable for handler tests without binding a port.
type Server struct {
	Engine *gin.Engine
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg)}
}

// Run blocks serving on address (":8080" form) until the listener
// fails or the process is stopped.
func (s *Server) Run(address string) error {
	return s.Engine.Run(address)
}
