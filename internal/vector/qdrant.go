package vector

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore implements Store using Qdrant over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   uint64
}

// NewQdrant creates a Qdrant-backed store.
func NewQdrant(host string, port int, collection string, dimension int) (*QdrantStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimension:   uint64(dimension),
	}, nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	listed, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant list collections: %w", err)
	}
	for _, c := range listed.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     s.dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", s.collection, err)
	}

	for _, field := range []string{"category", "ressort"} {
		fieldType := pb.FieldType_FieldTypeKeyword
		_, err = s.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      &fieldType,
		})
		if err != nil {
			return fmt.Errorf("qdrant index %s: %w", field, err)
		}
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, p Point) error {
	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id:      numID(p.ID),
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}}},
			Payload: encodePayload(p.Payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %d: %w", p.ID, err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vec []float32, limit int, filter *Filter) ([]Hit, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vec,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if f := encodeFilter(filter); f != nil {
		req.Filter = f
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		payload := decodePayload(pt.GetPayload())
		hits[i] = Hit{
			DIPID:   payload.DIPID,
			Title:   payload.Title,
			Score:   pt.GetScore(),
			Payload: payload,
		}
	}
	return hits, nil
}

func (s *QdrantStore) Delete(ctx context.Context, naturalKey string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{numID(PointID(naturalKey))}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant delete %s: %w", naturalKey, err)
	}
	return nil
}

func (s *QdrantStore) Close() error { return s.conn.Close() }

func numID(id uint32) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}}
}

func encodePayload(p Payload) map[string]*pb.Value {
	return map[string]*pb.Value{
		"dipId":    strValue(p.DIPID),
		"titel":    strValue(p.Title),
		"category": strValue(p.Category),
		"datum":    strValue(p.Date),
		"ressort":  strValue(p.Department),
		"summary":  strValue(p.Summary),
	}
}

func decodePayload(m map[string]*pb.Value) Payload {
	return Payload{
		DIPID:      m["dipId"].GetStringValue(),
		Title:      m["titel"].GetStringValue(),
		Category:   m["category"].GetStringValue(),
		Date:       m["datum"].GetStringValue(),
		Department: m["ressort"].GetStringValue(),
		Summary:    m["summary"].GetStringValue(),
	}
}

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func encodeFilter(f *Filter) *pb.Filter {
	if f == nil {
		return nil
	}
	var must []*pb.Condition
	if f.Category != "" {
		must = append(must, keywordMatch("category", f.Category))
	}
	if f.Department != "" {
		must = append(must, keywordMatch("ressort", f.Department))
	}
	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

func keywordMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

var _ Store = (*QdrantStore)(nil)
