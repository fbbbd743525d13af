// Package qdrant provides a MemberIndex implementation using Qdrant.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/config"
)

// Payload keys stored on every point.
const (
	payloadTreeID   = "tree_id"
	payloadMemberID = "member_id"
	payloadName     = "name"
	payloadSurname  = "surname"
	payloadText     = "text"
)

// Repository implements ports.MemberIndex and ports.CollectionManager.
type Repository struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	conn       *grpc.ClientConn
}

// NewRepository creates a new Qdrant repository. The connection is
// established lazily on the first call.
func NewRepository(cfg config.QdrantConfig) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Repository{
		client:     pb.NewCollectionsClient(conn),
		points:     pb.NewPointsClient(conn),
		collection: cfg.Collection,
		conn:       conn,
	}, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the gRPC connection.
func (r *Repository) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection and its tree_id payload index if
// the collection doesn't exist.
func (r *Repository) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		return nil
	}

	_, err = r.client.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	_, err = r.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
		CollectionName: r.collection,
		FieldName:      payloadTreeID,
		FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("creating tree index: %w", err)
	}

	return nil
}

// DeleteCollection removes the collection and all its points.
func (r *Repository) DeleteCollection(ctx context.Context) error {
	_, err := r.client.Delete(ctx, &pb.DeleteCollection{
		CollectionName: r.collection,
	})
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

// Upsert stores or replaces member documents.
func (r *Repository) Upsert(ctx context.Context, docs []ports.MemberDocument) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(docs))
	for _, doc := range docs {
		points = append(points, documentToPoint(doc))
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

// Delete removes members of a tree from the index.
func (r *Repository) Delete(ctx context.Context, treeID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}

	ids := make([]*pb.PointId, 0, len(memberIDs))
	for _, id := range memberIDs {
		ids = append(ids, pointID(treeID, id))
	}

	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// DeleteTree removes every point belonging to a tree.
func (r *Repository) DeleteTree(ctx context.Context, treeID string) error {
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: treeFilter(treeID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting points by tree: %w", err)
	}
	return nil
}

// Search returns the members of a tree closest to the embedding.
func (r *Repository) Search(ctx context.Context, treeID string, embedding []float32, limit int) ([]ports.MemberHit, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		Filter:         treeFilter(treeID),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	hits := make([]ports.MemberHit, 0, len(resp.Result))
	for _, point := range resp.Result {
		hits = append(hits, scoredPointToHit(point))
	}
	return hits, nil
}

// pointID derives a stable point id so re-indexing a member replaces its
// previous point.
func pointID(treeID, memberID string) *pb.PointId {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(treeID+"/"+memberID))
	return &pb.PointId{
		PointIdOptions: &pb.PointId_Uuid{Uuid: id.String()},
	}
}

func treeFilter(treeID string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: payloadTreeID,
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: treeID},
						},
					},
				},
			},
		},
	}
}

func documentToPoint(doc ports.MemberDocument) *pb.PointStruct {
	return &pb.PointStruct{
		Id: pointID(doc.TreeID, doc.MemberID),
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: doc.Embedding},
			},
		},
		Payload: map[string]*pb.Value{
			payloadTreeID:   stringValue(doc.TreeID),
			payloadMemberID: stringValue(doc.MemberID),
			payloadName:     stringValue(doc.Name),
			payloadSurname:  stringValue(doc.Surname),
			payloadText:     stringValue(doc.Text),
		},
	}
}

func scoredPointToHit(point *pb.ScoredPoint) ports.MemberHit {
	payload := point.Payload
	return ports.MemberHit{
		TreeID:   getStringValue(payload, payloadTreeID),
		MemberID: getStringValue(payload, payloadMemberID),
		Name:     getStringValue(payload, payloadName),
		Surname:  getStringValue(payload, payloadSurname),
		Score:    point.Score,
	}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
