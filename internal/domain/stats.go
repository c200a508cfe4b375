package domain

// Stats are global counters; they carry no room data.
type Stats struct {
	TotalRooms    int64 `json:"totalRooms"`
	TotalMessages int64 `json:"totalMessages"`
	TotalVanished int64 `json:"totalVanished"`
}
