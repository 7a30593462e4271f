package database

func (d *Database) RunMigrations() error {
	return d.db.AutoMigrate(&DistrictList{})
}
