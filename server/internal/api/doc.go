// Package api implements the HTTP surface of lapboard.
//
// New(board, opts...) returns an http.Handler that serves:
//
//	GET    /api/state                  full snapshot: cars, times, ranking
//	POST   /api/cars                   {name, color?} -> 201 car
//	DELETE /api/cars/{id}              {ok: true}; 404 if unknown
//	POST   /api/times/{carId}          {time} -> 201 {carId, ms, formatted}
//	DELETE /api/times/{carId}/{index}  {ok: true}; 404 unknown car, 400 bad index
//	GET    /healthz                    {status, cars, observers}
//
// Options mount the WebSocket hub (/ws), the metrics handler (/metrics) and a
// static directory (/). Errors are JSON {error} with 400 for invalid input or
// a lap index out of range and 404 for unknown cars.
//
// JSON types are defined in types.go. Routing is go-chi/chi; CORS is rs/cors.
package api
