package book

type BookReq struct {
	Title     string `json:"title" validate:"required,max=50"`
	Author    string `json:"author" validate:"required,max=50"`
	Cover     string `json:"cover" validate:"required,oneof=hard soft"`
	Inventory int64  `json:"inventory" validate:"gte=0"`
	DailyFee  string `json:"daily_fee" validate:"required"`
}
