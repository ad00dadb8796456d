package db

import (
	"fmt"

	"github.com/demandcast/demandcast/internal/models"
)

// DB holds the in-memory catalog and stock positions loaded from Postgres.
type DB struct {
	Products  []models.Product
	Locations map[string]models.Location
	Inventory map[string]models.InventoryLevel // keyed by models.PlanKey

	productIndexByID       map[string]*models.Product
	inventoryIndexByProduct map[string][]models.InventoryLevel
}

// Init loads the catalog from Postgres and validates its relationships.
// A DB instance containing the loaded data is returned.
func Init(pg *Postgres) (*DB, error) {
	products, err := pg.LoadProducts()
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	locs, err := pg.LoadLocations()
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	locations := make(map[string]models.Location, len(locs))
	for _, l := range locs {
		locations[l.ID] = l
	}

	levels, err := pg.LoadInventoryLevels()
	if err != nil {
		return nil, fmt.Errorf("load inventory levels: %w", err)
	}

	d := &DB{Products: products, Locations: locations}
	d.Inventory = make(map[string]models.InventoryLevel, len(levels))

	productIndex := make(map[string]*models.Product, len(products))
	for i := range products {
		productIndex[products[i].ID] = &products[i]
	}

	for _, lv := range levels {
		if _, ok := productIndex[lv.ProductID]; !ok {
			return nil, fmt.Errorf("inventory references undefined product %s", lv.ProductID)
		}
		if _, ok := locations[lv.LocationID]; !ok {
			return nil, fmt.Errorf("inventory references undefined location %s", lv.LocationID)
		}
		d.Inventory[models.PlanKey(lv.ProductID, lv.LocationID)] = lv
	}

	d.productIndexByID = productIndex
	d.buildInventoryIndex()
	return d, nil
}

// FindProductByID retrieves a product by its ID.
func (d *DB) FindProductByID(id string) *models.Product {
	if p, ok := d.productIndexByID[id]; ok {
		return p
	}
	return nil
}

// GetLocation returns the location definition for the given ID.
func (d *DB) GetLocation(id string) (models.Location, bool) {
	l, ok := d.Locations[id]
	return l, ok
}

// GetInventory returns the stock position for a (product, location) pair.
func (d *DB) GetInventory(productID, locationID string) (models.InventoryLevel, bool) {
	lv, ok := d.Inventory[models.PlanKey(productID, locationID)]
	return lv, ok
}

// FindInventoryForProduct returns all stock positions of a product across locations.
func (d *DB) FindInventoryForProduct(productID string) []models.InventoryLevel {
	if lvs, ok := d.inventoryIndexByProduct[productID]; ok {
		return lvs
	}
	return nil
}

// BuildIndexes builds the internal indexes for the DB. Used primarily for testing.
func (d *DB) BuildIndexes() {
	productIndex := make(map[string]*models.Product, len(d.Products))
	for i := range d.Products {
		productIndex[d.Products[i].ID] = &d.Products[i]
	}
	d.productIndexByID = productIndex
	d.buildInventoryIndex()
}

func (d *DB) buildInventoryIndex() {
	byProduct := make(map[string][]models.InventoryLevel)
	for _, lv := range d.Inventory {
		byProduct[lv.ProductID] = append(byProduct[lv.ProductID], lv)
	}
	d.inventoryIndexByProduct = byProduct
}
