package v1

import (
	"context"

	"github.com/go-kratos/kratos/v2/transport/http"
)

// 路由注册沿用 protoc-gen-go-http 的形式，消息为普通结构体，使用 JSON/form 编解码。

const (
	OperationMoodMapServiceListMoods      = "/moodmap.v1.MoodMapService/ListMoods"
	OperationMoodMapServiceRecommend      = "/moodmap.v1.MoodMapService/Recommend"
	OperationMoodMapServiceCreateSession  = "/moodmap.v1.MoodMapService/CreateSession"
	OperationMoodMapServiceGetSession     = "/moodmap.v1.MoodMapService/GetSession"
	OperationMoodMapServiceUpdateLocation = "/moodmap.v1.MoodMapService/UpdateLocation"
	OperationMoodMapServiceUpdateMood     = "/moodmap.v1.MoodMapService/UpdateMood"
	OperationMoodMapServiceLookup         = "/moodmap.v1.MoodMapService/Lookup"
	OperationMoodMapServiceRefresh        = "/moodmap.v1.MoodMapService/Refresh"
	OperationMoodMapServiceEndSession     = "/moodmap.v1.MoodMapService/EndSession"
	OperationMoodMapServiceStatus         = "/moodmap.v1.MoodMapService/Status"
)

type MoodMapServiceHTTPServer interface {
	ListMoods(context.Context, *ListMoodsRequest) (*ListMoodsReply, error)
	Recommend(context.Context, *RecommendRequest) (*ResultSet, error)
	CreateSession(context.Context, *CreateSessionRequest) (*SessionReply, error)
	GetSession(context.Context, *GetSessionRequest) (*SessionReply, error)
	UpdateLocation(context.Context, *UpdateLocationRequest) (*SessionReply, error)
	UpdateMood(context.Context, *UpdateMoodRequest) (*SessionReply, error)
	Lookup(context.Context, *LookupRequest) (*SessionReply, error)
	Refresh(context.Context, *RefreshRequest) (*SessionReply, error)
	EndSession(context.Context, *EndSessionRequest) (*EndSessionReply, error)
	Status(context.Context, *StatusRequest) (*StatusReply, error)
}

func RegisterMoodMapServiceHTTPServer(s *http.Server, srv MoodMapServiceHTTPServer) {
	r := s.Route("/")
	r.GET("/v1/moods", _MoodMapService_ListMoods0_HTTP_Handler(srv))
	r.GET("/v1/recommendations", _MoodMapService_Recommend0_HTTP_Handler(srv))
	r.POST("/v1/sessions", _MoodMapService_CreateSession0_HTTP_Handler(srv))
	r.GET("/v1/sessions/{id}", _MoodMapService_GetSession0_HTTP_Handler(srv))
	r.PUT("/v1/sessions/{id}/location", _MoodMapService_UpdateLocation0_HTTP_Handler(srv))
	r.PUT("/v1/sessions/{id}/mood", _MoodMapService_UpdateMood0_HTTP_Handler(srv))
	r.POST("/v1/sessions/{id}/lookup", _MoodMapService_Lookup0_HTTP_Handler(srv))
	r.POST("/v1/sessions/{id}/refresh", _MoodMapService_Refresh0_HTTP_Handler(srv))
	r.DELETE("/v1/sessions/{id}", _MoodMapService_EndSession0_HTTP_Handler(srv))
	r.GET("/status", _MoodMapService_Status0_HTTP_Handler(srv))
}

func _MoodMapService_ListMoods0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListMoodsRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceListMoods)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListMoods(ctx, req.(*ListMoodsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListMoodsReply)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_Recommend0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RecommendRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceRecommend)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Recommend(ctx, req.(*RecommendRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ResultSet)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_CreateSession0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CreateSessionRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceCreateSession)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.CreateSession(ctx, req.(*CreateSessionRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*SessionReply)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_GetSession0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetSessionRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceGetSession)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetSession(ctx, req.(*GetSessionRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*SessionReply)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_UpdateLocation0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in UpdateLocationRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceUpdateLocation)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.UpdateLocation(ctx, req.(*UpdateLocationRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*SessionReply)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_UpdateMood0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in UpdateMoodRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceUpdateMood)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.UpdateMood(ctx, req.(*UpdateMoodRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*SessionReply)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_Lookup0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in LookupRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceLookup)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Lookup(ctx, req.(*LookupRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*SessionReply)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_Refresh0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RefreshRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceRefresh)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Refresh(ctx, req.(*RefreshRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*SessionReply)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_EndSession0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in EndSessionRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceEndSession)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.EndSession(ctx, req.(*EndSessionRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*EndSessionReply)
		return ctx.Result(200, reply)
	}
}

func _MoodMapService_Status0_HTTP_Handler(srv MoodMapServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in StatusRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationMoodMapServiceStatus)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Status(ctx, req.(*StatusRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*StatusReply)
		return ctx.Result(200, reply)
	}
}
