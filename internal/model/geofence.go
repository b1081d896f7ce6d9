package model

import "time"

// Geofence 电子围栏
type Geofence struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Polygon   []Location `json:"polygon"`
	CreatedBy string     `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Clone deep copy of the polygon
func (g *Geofence) Clone() Geofence {
	c := *g
	c.Polygon = append([]Location(nil), g.Polygon...)
	return c
}

// CreateGeofenceRequest 创建围栏请求
type CreateGeofenceRequest struct {
	Name    string     `json:"name" binding:"required"`
	Polygon []Location `json:"polygon" binding:"required"`
}

// CheckPointRequest tests a single point against a polygon
type CheckPointRequest struct {
	Point   Location   `json:"point"`
	Polygon []Location `json:"polygon" binding:"required"`
}

// CheckPointResponse 点检测结果
type CheckPointResponse struct {
	Inside bool `json:"inside"`
}
