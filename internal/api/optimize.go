package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/optimization"
)

type optimizeRequest struct {
	ProductID  string                        `json:"product_id"`
	LocationID string                        `json:"location_id,omitempty"` // empty = every stocked location
	ChannelID  string                        `json:"channel_id"`
	Parameters models.OptimizationParameters `json:"parameters"`
}

// OptimizeHandler produces one replenishment recommendation per stocked
// location of the requested product.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/optimize"
	method := r.Method

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" || req.ChannelID == "" {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "product_id and channel_id are required", http.StatusBadRequest)
		return
	}

	product := s.DB.FindProductByID(req.ProductID)
	if product == nil {
		s.finish(endpoint, method, start, "404")
		http.Error(w, "unknown product", http.StatusNotFound)
		return
	}

	levels := s.stockedLocations(req.ProductID, req.LocationID)
	if len(levels) == 0 {
		s.finish(endpoint, method, start, "404")
		http.Error(w, "no inventory for product", http.StatusNotFound)
		return
	}

	series, err := s.loadSeries(r, req.ProductID, req.ChannelID)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	unitCost, _ := product.UnitCost.Float64()
	results := make([]*models.OptimizationResult, 0, len(levels))
	for _, lv := range levels {
		res, err := s.Optimizer.Optimize(r.Context(), optimization.OptimizeInput{
			ProductID:    req.ProductID,
			LocationID:   lv.LocationID,
			Series:       series,
			CurrentStock: lv.Available(),
			UnitCost:     unitCost,
			Params:       req.Parameters,
		})
		if err != nil {
			s.writeError(w, endpoint, method, start, err)
			return
		}
		results = append(results, res)
	}

	s.writeJSON(w, http.StatusOK, results)
	s.finish(endpoint, method, start, "200")
}

func (s *Server) stockedLocations(productID, locationID string) []models.InventoryLevel {
	if locationID != "" {
		if lv, ok := s.DB.GetInventory(productID, locationID); ok {
			return []models.InventoryLevel{lv}
		}
		return nil
	}
	return s.DB.FindInventoryForProduct(productID)
}

// ABCHandler classifies the whole catalog by trailing annual consumption value.
func (s *Server) ABCHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/optimize/abc"
	method := r.Method

	annualUnits, err := s.History.GetAnnualDemand(r.Context())
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	values := make(map[string]float64, len(annualUnits))
	for productID, units := range annualUnits {
		product := s.DB.FindProductByID(productID)
		if product == nil {
			continue
		}
		unitCost, _ := product.UnitCost.Float64()
		values[productID] = units * unitCost
	}
	if len(values) == 0 {
		s.writeError(w, endpoint, method, start, fmt.Errorf("%w: no sales in the trailing year", models.ErrInsufficientData))
		return
	}

	items := optimization.ClassifyABC(values)
	s.writeJSON(w, http.StatusOK, items)
	s.finish(endpoint, method, start, "200")
}

// SlowMoversHandler flags products with poor turnover or aging stock across
// all locations.
func (s *Server) SlowMoversHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/optimize/slow-movers"
	method := r.Method

	annualUnits, err := s.History.GetAnnualDemand(r.Context())
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	var inputs []optimization.SlowMoverInput
	for _, product := range s.DB.Products {
		var stock, ageWeighted float64
		for _, lv := range s.DB.FindInventoryForProduct(product.ID) {
			stock += lv.Available()
			ageWeighted += lv.AverageAgeDays * lv.Available()
		}
		if stock <= 0 {
			continue
		}
		unitCost, _ := product.UnitCost.Float64()
		inputs = append(inputs, optimization.SlowMoverInput{
			ProductID:       product.ID,
			AnnualDemand:    annualUnits[product.ID],
			AverageStock:    stock,
			AverageAgeDays:  ageWeighted / stock,
			UnitCost:        unitCost,
			HoldingCostRate: s.Config.DefaultHoldingCostRate,
		})
	}

	movers := optimization.IdentifySlowMovers(inputs)
	s.writeJSON(w, http.StatusOK, movers)
	s.finish(endpoint, method, start, "200")

	s.Logger.Debug("slow mover scan", zap.Int("candidates", len(inputs)), zap.Int("flagged", len(movers)))
}
