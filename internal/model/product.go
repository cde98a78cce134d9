package model

// Product is a tenant-scoped inventory aggregate. It declares the
// soft-delete capability, so the save pipeline never physically removes a
// row and every mutation leaves an audit trail record.
type Product struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	TenantID string  `json:"tenant_id" gorm:"type:varchar(64);index"`
	Name     string  `json:"name" gorm:"type:varchar(100)"`
	SKU      string  `json:"sku" gorm:"type:varchar(64);uniqueIndex"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	AuditStamps
	SoftDelete
}

// AuditTable implements the audit record contract.
func (p *Product) AuditTable() string { return "products" }

// AuditKeys returns the primary key columns. A zero ID means the value is
// assigned by the store on insert and stays pending until after the save.
func (p *Product) AuditKeys() map[string]interface{} {
	return map[string]interface{}{"id": p.ID}
}

// AuditValues returns the non-key columns captured by the audit trail.
func (p *Product) AuditValues() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":  p.TenantID,
		"name":       p.Name,
		"sku":        p.SKU,
		"price":      p.Price,
		"quantity":   p.Quantity,
		"is_deleted": p.IsDeleted,
		"deleted_on": p.DeletedOn,
		"deleted_by": p.DeletedBy,
	}
}
