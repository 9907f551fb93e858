package webhook

import "context"

type IService interface {
	Post(ctx context.Context, payload map[string]interface{}) error
}
