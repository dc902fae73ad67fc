package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"scsb/internal/downstream"
	"scsb/internal/forward"
)

// Sentinel messages returned to callers in place of downstream detail
const (
	SolrClientServiceUnavailable  = "Scsb solr client Service is Unavailable."
	CircServiceUnavailable        = "Scsb circ Service is Unavailable."
	ItemBarcodeDoesNotExist       = "Item Barcode doesn't exist in SCSB database."
	AccessionInternalError        = "Internal error occurred during accession"
	SubmitCollectionInternalError = "Internal Error occurred during submit collection"
	TransferInternalError         = "Internal error occurred during transfer"
)

// Business messages embedded by downstream services in 200 responses
const (
	OngoingAccessionLimitExceeded = "Ongoing Accession Limit cannot exceed"
	InvalidMarcXMLFormat          = "Please provide valid Marc xml format"
	InvalidSCSBXMLFormat          = "Please provide valid SCSB xml format"
)

// Logical failure codes
const (
	CodeAccessionLimitExceeded = "ACCESSION_LIMIT_EXCEEDED"
	CodeInvalidMarcXML         = "INVALID_MARC_XML"
	CodeInvalidSCSBXML         = "INVALID_SCSB_XML"
	CodeSubmitCollectionFailed = "SUBMIT_COLLECTION_FAILED"
)

// Submit collection parameters
const (
	ParamInputRecords   = "inputRecords"
	ParamInstitution    = "institution"
	ParamIsCGDProtected = "isCGDProtected"
)

// AccessionResponse is one element of the accession response list
type AccessionResponse struct {
	ItemBarcode *string `json:"itemBarcode"`
	Message     string  `json:"message"`
}

var errNoMessage = errors.New("response list has no leading message")

// SCSBRoutes returns the route table of the shared collection and
// scheduler endpoints
func SCSBRoutes() []Route {
	solrUnavailable := forward.Sentinels{Unavailable: []byte(SolrClientServiceUnavailable)}

	return []Route{
		{
			Name:           "scheduleJob",
			Method:         http.MethodPost,
			Path:           "/scheduleService/scheduleJob",
			Service:        downstream.Schedule,
			DownstreamPath: "/scheduleService/scheduleJob",
			Rule:           forward.Rule{Shape: forward.ShapeObject},
			EmbedErrors:    true,
		},
		{
			Name:           "itemAvailabilityStatus",
			Method:         http.MethodPost,
			Path:           "/sharedCollection/itemAvailabilityStatus",
			Service:        downstream.SolrClient,
			DownstreamPath: "/sharedCollection/itemAvailabilityStatus",
			Rule: forward.Rule{
				Shape:     forward.ShapeText,
				NoContent: []byte(ItemBarcodeDoesNotExist),
			},
			Sentinels: solrUnavailable,
		},
		{
			Name:           "bibAvailabilityStatus",
			Method:         http.MethodPost,
			Path:           "/sharedCollection/bibAvailabilityStatus",
			Service:        downstream.SolrClient,
			DownstreamPath: "/sharedCollection/bibAvailabilityStatus",
			Rule:           forward.Rule{Shape: forward.ShapeText},
			Sentinels:      solrUnavailable,
		},
		{
			Name:           "deaccession",
			Method:         http.MethodPost,
			Path:           "/sharedCollection/deaccession",
			Service:        downstream.Circ,
			DownstreamPath: "/sharedCollection/deAccession",
			Rule:           forward.Rule{Shape: forward.ShapeObject},
			Sentinels:      forward.Sentinels{Unavailable: []byte(CircServiceUnavailable)},
		},
		{
			Name:           "accessionBatch",
			Method:         http.MethodPost,
			Path:           "/sharedCollection/accessionBatch",
			Service:        downstream.Core,
			DownstreamPath: "/sharedCollection/accessionBatch",
			Rule:           forward.Rule{Shape: forward.ShapeText},
			Sentinels:      solrUnavailable,
		},
		{
			Name:           "accession",
			Method:         http.MethodPost,
			Path:           "/sharedCollection/accession",
			Service:        downstream.Core,
			DownstreamPath: "/sharedCollection/accession",
			Rule: forward.Rule{
				Shape:   forward.ShapeList,
				Inspect: InspectAccessionLimit,
			},
			Sentinels: forward.Sentinels{
				Unavailable: accessionMessageList(SolrClientServiceUnavailable),
				Error:       accessionMessageList(AccessionInternalError),
			},
		},
		{
			Name:           "submitCollection",
			Method:         http.MethodPost,
			Path:           "/sharedCollection/submitCollection",
			Service:        downstream.Core,
			DownstreamPath: "/sharedCollection/submitCollection",
			Encoding:       EncodingMultipart,
			BodyField:      ParamInputRecords,
			Params: []Param{
				{Name: ParamInstitution},
				{Name: ParamIsCGDProtected, Bool: true},
			},
			Rule: forward.Rule{
				Shape:   forward.ShapeList,
				Inspect: InspectSubmitCollection,
			},
			Sentinels: forward.Sentinels{Unavailable: []byte(SubmitCollectionInternalError)},
		},
		{
			Name:           "transferHoldingsAndItems",
			Method:         http.MethodPost,
			Path:           "/sharedCollection/transferHoldingsAndItems",
			Service:        downstream.SolrClient,
			DownstreamPath: "/transfer/processTransfer",
			Rule:           forward.Rule{Shape: forward.ShapeObject},
			Sentinels:      forward.Sentinels{Unavailable: []byte(TransferInternalError)},
		},
	}
}

// InspectAccessionLimit flags an accession response whose first entry
// reports the ongoing accession limit. A missing body passes through.
func InspectAccessionLimit(doc any) (*forward.Failure, error) {
	if doc == nil {
		return nil, nil
	}
	msg, err := leadingMessage(doc)
	if err != nil {
		return nil, err
	}
	if strings.Contains(msg, OngoingAccessionLimitExceeded) {
		return &forward.Failure{Code: CodeAccessionLimitExceeded, Message: msg}, nil
	}
	return nil, nil
}

// InspectSubmitCollection flags the invalid format messages and the
// internal error message. A missing body counts as an internal error.
func InspectSubmitCollection(doc any) (*forward.Failure, error) {
	msg := SubmitCollectionInternalError
	if doc != nil {
		m, err := leadingMessage(doc)
		if err != nil {
			return nil, err
		}
		msg = m
	}

	switch {
	case strings.EqualFold(msg, InvalidMarcXMLFormat):
		return &forward.Failure{Code: CodeInvalidMarcXML, Message: msg}, nil
	case strings.EqualFold(msg, InvalidSCSBXMLFormat):
		return &forward.Failure{Code: CodeInvalidSCSBXML, Message: msg}, nil
	case strings.EqualFold(msg, SubmitCollectionInternalError):
		return &forward.Failure{Code: CodeSubmitCollectionFailed, Message: msg}, nil
	}
	return nil, nil
}

// leadingMessage returns the message field of the first list entry
func leadingMessage(doc any) (string, error) {
	list, ok := doc.([]any)
	if !ok || len(list) == 0 {
		return "", errNoMessage
	}
	entry, ok := list[0].(map[string]any)
	if !ok {
		return "", errNoMessage
	}
	v, ok := entry["message"]
	if !ok || v == nil {
		return "", errNoMessage
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func accessionMessageList(msg string) []byte {
	b, err := sonic.Marshal([]AccessionResponse{{Message: msg}})
	if err != nil {
		panic(fmt.Sprintf("encode accession sentinel: %v", err))
	}
	return b
}
