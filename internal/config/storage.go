package config

type Storage struct {
	// DataDir holds inventory.csv and sales.csv. Created on startup if absent.
	DataDir       string `env:"STORAGE_DATA_DIR" envDefault:"./data"`
	InventoryFile string `env:"STORAGE_INVENTORY_FILE" envDefault:"inventory.csv"`
	SalesFile     string `env:"STORAGE_SALES_FILE" envDefault:"sales.csv"`
}
