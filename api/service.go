package api

import (
	"SheetReports/internal/serviceiface"
	"fmt"
	"strings"
)

const (
	defaultGatewayPort = 8081
	defaultReportsURL  = "http://localhost:7143"
)

type GatewayService struct {
	config map[string]interface{}
}

func NewGatewayService(cfg map[string]interface{}) serviceiface.Service {
	return &GatewayService{config: cfg}
}

func (s *GatewayService) Name() string {
	return "gateway"
}

func (s *GatewayService) Start() error {
	port := defaultGatewayPort
	if p, ok := s.config["port"].(int); ok && p > 0 {
		port = p
	}
	go StartGateway(fmt.Sprintf(":%d", port), s.routes())
	return nil
}

// routes reads the "routes" map from services.yaml, defaulting to the
// reports service on localhost.
func (s *GatewayService) routes() map[string]string {
	routes := map[string]string{}
	if raw, ok := s.config["routes"].(map[string]interface{}); ok {
		for prefix, target := range raw {
			t, ok := target.(string)
			if !ok || t == "" {
				continue
			}
			if !strings.HasSuffix(prefix, "/") {
				prefix += "/"
			}
			routes[prefix] = t
		}
	}
	if len(routes) == 0 {
		routes["/reports/"] = defaultReportsURL
	}
	return routes
}

func (s *GatewayService) Stop() error {
	// Implement stop logic if needed
	return nil
}
